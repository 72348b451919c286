// Package service holds the task and user operations and the relationship
// synchronizer that keeps Task.AssignedUser and User.PendingTasks aligned.
package service

import (
	"context"

	"go.uber.org/zap"

	"taskboard/internal/cache"
	"taskboard/internal/models"
	"taskboard/internal/store"
	"taskboard/pkg/logger"
)

// Synchronizer owns every secondary write that maintains the task/user
// back-references. All of its mutations are best-effort: a failure is
// logged and swallowed, never retried, and never rolls back the primary
// write that triggered it. The caller's operation succeeds regardless.
type Synchronizer struct {
	tasks store.TaskStore
	users store.UserStore
	cache *cache.Cache
}

func NewSynchronizer(tasks store.TaskStore, users store.UserStore, c *cache.Cache) *Synchronizer {
	return &Synchronizer{tasks: tasks, users: users, cache: c}
}

// ResolveUser looks up an assignment target. A missing user or a store
// failure both come back nil: assignment falls back to the unassigned state
// instead of failing the caller.
func (s *Synchronizer) ResolveUser(ctx context.Context, userID string) *models.User {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil
	}
	return u
}

// AddPending appends the task to the user's pending list. The append is
// idempotent; the id never appears twice.
func (s *Synchronizer) AddPending(ctx context.Context, userID, taskID string) {
	if err := s.users.AddPendingTask(ctx, userID, taskID); err != nil {
		logger.ErrorLogger.Error("Error adding task to pendingTasks",
			zap.String("user_id", userID), zap.String("task_id", taskID), zap.Error(err))
		return
	}
	s.cache.DropUsers(ctx, userID)
}

// RemovePending drops the task from the user's pending list.
func (s *Synchronizer) RemovePending(ctx context.Context, userID, taskID string) {
	if err := s.users.RemovePendingTask(ctx, userID, taskID); err != nil {
		logger.ErrorLogger.Error("Error removing task from pendingTasks",
			zap.String("user_id", userID), zap.String("task_id", taskID), zap.Error(err))
		return
	}
	s.cache.DropUsers(ctx, userID)
}

// UnassignAllFor clears assignment on every task pointing at the user; used
// by the user-delete cascade.
func (s *Synchronizer) UnassignAllFor(ctx context.Context, userID string) {
	ids, err := s.tasks.UnassignAllForUser(ctx, userID)
	if err != nil {
		logger.ErrorLogger.Error("Error unassigning tasks",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.cache.DropTasks(ctx, ids...)
}

// PushAssignedName fans the user's name out to the named tasks. It does not
// check that those tasks actually point back at the user; a bulk
// pendingTasks replace is one-directional.
func (s *Synchronizer) PushAssignedName(ctx context.Context, taskIDs []string, name string) {
	if len(taskIDs) == 0 {
		return
	}
	if err := s.tasks.SetAssignedUserName(ctx, taskIDs, name); err != nil {
		logger.ErrorLogger.Error("Error updating assignedUserName on tasks",
			zap.Strings("task_ids", taskIDs), zap.Error(err))
		return
	}
	s.cache.DropTasks(ctx, taskIDs...)
}
