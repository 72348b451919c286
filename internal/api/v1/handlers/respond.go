// Package handlers is the HTTP edge: it parses bodies and query parameters,
// delegates to the services, and renders the {message, data} envelope.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/service"
	"taskboard/internal/store"
	"taskboard/pkg/logger"
)

// Handler bundles the two services behind the route table.
type Handler struct {
	Tasks *service.TaskService
	Users *service.UserService
}

func New(tasks *service.TaskService, users *service.UserService) *Handler {
	return &Handler{Tasks: tasks, Users: users}
}

// respond writes the response envelope every endpoint uses.
func respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

// failure maps a service error onto the envelope: not-found and duplicate
// email are client errors, everything else is a store failure.
func failure(c *fiber.Ctx, err error, notFoundMsg, storeMsg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return respond(c, fiber.StatusNotFound, notFoundMsg, nil)
	case errors.Is(err, store.ErrDuplicateEmail):
		return respond(c, fiber.StatusBadRequest, "User with this email already exists", nil)
	default:
		logger.ErrorLogger.Error(storeMsg, zap.Error(err))
		return respond(c, fiber.StatusInternalServerError, storeMsg, nil)
	}
}
