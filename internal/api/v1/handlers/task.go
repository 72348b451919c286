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

// Task handlers

// defaultTaskLimit caps task listings when the client supplies no limit.
const defaultTaskLimit = 100

type taskRequest struct {
	Name         string       `json:"name" validate:"required"`
	Description  *string      `json:"description"`
	Deadline     *models.Time `json:"deadline" validate:"required"`
	Completed    *bool        `json:"completed"`
	AssignedUser string       `json:"assignedUser"`
	DateCreated  *models.Time `json:"dateCreated"`
}

func (r taskRequest) input() service.TaskInput {
	in := service.TaskInput{
		Name:         r.Name,
		Description:  r.Description,
		Completed:    r.Completed,
		AssignedUser: r.AssignedUser,
		DateCreated:  r.DateCreated,
	}
	if r.Deadline != nil {
		in.Deadline = *r.Deadline
	}
	return in
}

// ListTasks handles GET /api/tasks: filter/sort/project/paginate, or a bare
// count when count=true. A malformed parameter is rejected before the store
// is touched.
func (h *Handler) ListTasks(c *fiber.Ctx) error {
	spec, err := query.Parse(c.Queries(), query.TaskFields, defaultTaskLimit)
	if err != nil {
		logger.ErrorLogger.Error("Bad query parameters in list tasks", zap.Error(err))
		return respond(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if spec.CountOnly {
		n, err := h.Tasks.Count(c.Context(), spec)
		if err != nil {
			return failure(c, err, "", "Error counting tasks")
		}
		return respond(c, fiber.StatusOK, "OK", n)
	}

	tasks, err := h.Tasks.List(c.Context(), spec)
	if err != nil {
		return failure(c, err, "", "Error retrieving tasks")
	}
	return respond(c, fiber.StatusOK, "OK", spec.Projection.Apply(tasks))
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(c *fiber.Ctx) error {
	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return respond(c, fiber.StatusBadRequest, "Bad request", nil)
	}
	// An empty-string deadline unmarshals to a zero time, which required
	// alone does not catch.
	if err := config.Validate.Struct(req); err != nil || req.Deadline.IsZero() {
		return respond(c, fiber.StatusBadRequest, "Name and deadline are required", nil)
	}

	task, err := h.Tasks.Create(c.Context(), req.input())
	if err != nil {
		return failure(c, err, "", "Error creating task")
	}
	logger.AuditLogger.Info("Task created", zap.String("task_id", task.ID))
	return respond(c, fiber.StatusCreated, "Task created successfully", task)
}

// GetTask handles GET /api/tasks/:id; supports select.
func (h *Handler) GetTask(c *fiber.Ctx) error {
	proj, err := query.ParseProjection(c.Query("select"))
	if err != nil {
		return respond(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	task, err := h.Tasks.Get(c.Context(), c.Params("id"))
	if err != nil {
		return failure(c, err, "Task not found", "Error retrieving task")
	}
	return respond(c, fiber.StatusOK, "OK", proj.Apply(task))
}

// UpdateTask handles PUT /api/tasks/:id: a full replace that re-points the
// assignment back-references.
func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return respond(c, fiber.StatusBadRequest, "Bad request", nil)
	}
	if err := config.Validate.Struct(req); err != nil || req.Deadline.IsZero() {
		return respond(c, fiber.StatusBadRequest, "Name and deadline are required", nil)
	}

	task, err := h.Tasks.Update(c.Context(), c.Params("id"), req.input())
	if err != nil {
		return failure(c, err, "Task not found", "Error updating task")
	}
	logger.AuditLogger.Info("Task updated", zap.String("task_id", task.ID))
	return respond(c, fiber.StatusOK, "OK", task)
}

// DeleteTask handles DELETE /api/tasks/:id.
func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Tasks.Delete(c.Context(), id); err != nil {
		return failure(c, err, "Task not found", "Error deleting task")
	}
	logger.AuditLogger.Info("Task deleted", zap.String("task_id", id))
	return respond(c, fiber.StatusNoContent, "OK", nil)
}
