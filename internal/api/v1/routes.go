package v1

import (
	"github.com/gofiber/fiber/v2"

	"taskboard/internal/api/v1/handlers"
)

func RegisterRoutes(app *fiber.App, h *handlers.Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "OK", "data": nil})
	})

	api := app.Group("/api")

	// Task
	taskRoutes := api.Group("/tasks")
	taskRoutes.Get("/", h.ListTasks)
	taskRoutes.Post("/", h.CreateTask)
	taskRoutes.Get("/:id", h.GetTask)
	taskRoutes.Put("/:id", h.UpdateTask)
	taskRoutes.Delete("/:id", h.DeleteTask)

	// User
	userRoutes := api.Group("/users")
	userRoutes.Get("/", h.ListUsers)
	userRoutes.Post("/", h.CreateUser)
	userRoutes.Get("/:id", h.GetUser)
	userRoutes.Put("/:id", h.UpdateUser)
	userRoutes.Delete("/:id", h.DeleteUser)
}
