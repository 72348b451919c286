package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskboard/configs"
	v1 "taskboard/internal/api/v1"
	"taskboard/internal/api/v1/handlers"
	"taskboard/internal/cache"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	"taskboard/internal/service"
	"taskboard/internal/store"
	"taskboard/pkg/database"
	"taskboard/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Task/user REST API with relationship-consistent assignments",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.InitLoggers()
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	cfg := configs.LoadConfig()

	db := database.ConnectDB(cfg)
	defer db.Close()
	logger.SystemLogger.Info("Database connected")

	if err := repository.CreateTables(db); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	rdb := database.ConnectRedis(cfg)
	defer rdb.Close()

	recordCache := cache.New(rdb)
	taskStore := store.NewPostgresTaskStore(db)
	userStore := store.NewPostgresUserStore(db)
	sync := service.NewSynchronizer(taskStore, userStore, recordCache)
	taskService := service.NewTaskService(taskStore, sync, recordCache)
	userService := service.NewUserService(userStore, sync, recordCache)

	app := fiber.New()
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	v1.RegisterRoutes(app, handlers.New(taskService, userService))

	addr := fmt.Sprintf(":%d", cfg.AppPort)
	logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
		return err
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := configs.LoadConfig()
	db := database.ConnectDB(cfg)
	defer db.Close()
	if err := repository.CreateTables(db); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	fmt.Println("Tables 'users' and 'tasks' are ready.")
	return nil
}
