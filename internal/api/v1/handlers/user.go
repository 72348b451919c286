package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/models"
	"taskboard/internal/query"
	"taskboard/internal/service"
	"taskboard/pkg/logger"
)

// User handlers

type userRequest struct {
	Name         string       `json:"name" validate:"required"`
	Email        string       `json:"email" validate:"required"`
	PendingTasks []string     `json:"pendingTasks"`
	DateCreated  *models.Time `json:"dateCreated"`
}

func (r userRequest) input() service.UserInput {
	return service.UserInput{
		Name:         r.Name,
		Email:        r.Email,
		PendingTasks: r.PendingTasks,
		DateCreated:  r.DateCreated,
	}
}

// ListUsers handles GET /api/users. Unlike tasks, user listings carry no
// default page cap.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	spec, err := query.Parse(c.Queries(), query.UserFields, 0)
	if err != nil {
		logger.ErrorLogger.Error("Bad query parameters in list users", zap.Error(err))
		return respond(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if spec.CountOnly {
		n, err := h.Users.Count(c.Context(), spec)
		if err != nil {
			return failure(c, err, "", "Error counting users")
		}
		return respond(c, fiber.StatusOK, "OK", n)
	}

	users, err := h.Users.List(c.Context(), spec)
	if err != nil {
		return failure(c, err, "", "Error retrieving users")
	}
	return respond(c, fiber.StatusOK, "OK", spec.Projection.Apply(users))
}

// CreateUser handles POST /api/users. A duplicate email is a client error.
func (h *Handler) CreateUser(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create user", zap.Error(err))
		return respond(c, fiber.StatusBadRequest, "Bad request", nil)
	}
	if err := config.Validate.Struct(req); err != nil {
		return respond(c, fiber.StatusBadRequest, "Name and email are required", nil)
	}

	user, err := h.Users.Create(c.Context(), req.input())
	if err != nil {
		return failure(c, err, "", "Error creating user")
	}
	logger.AuditLogger.Info("User created", zap.String("user_id", user.ID))
	return respond(c, fiber.StatusCreated, "User created successfully", user)
}

// GetUser handles GET /api/users/:id; supports select.
func (h *Handler) GetUser(c *fiber.Ctx) error {
	proj, err := query.ParseProjection(c.Query("select"))
	if err != nil {
		return respond(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	user, err := h.Users.Get(c.Context(), c.Params("id"))
	if err != nil {
		return failure(c, err, "User not found", "Error retrieving user")
	}
	return respond(c, fiber.StatusOK, "OK", proj.Apply(user))
}

// UpdateUser handles PUT /api/users/:id: full replace, email uniqueness
// check, and the one-directional name fan-out to the listed tasks.
func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update user", zap.Error(err))
		return respond(c, fiber.StatusBadRequest, "Bad request", nil)
	}
	if err := config.Validate.Struct(req); err != nil {
		return respond(c, fiber.StatusBadRequest, "Name and email are required", nil)
	}

	user, err := h.Users.Update(c.Context(), c.Params("id"), req.input())
	if err != nil {
		return failure(c, err, "User not found", "Error updating user")
	}
	logger.AuditLogger.Info("User updated", zap.String("user_id", user.ID))
	return respond(c, fiber.StatusOK, "OK", user)
}

// DeleteUser handles DELETE /api/users/:id: unassigns the user's tasks,
// then removes the user.
func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Users.Delete(c.Context(), id); err != nil {
		return failure(c, err, "User not found", "Error deleting user")
	}
	logger.AuditLogger.Info("User deleted", zap.String("user_id", id))
	return respond(c, fiber.StatusNoContent, "OK", nil)
}
