// Package store is the record-store gateway: a thin capability surface over
// the database that the services and the relationship synchronizer talk to.
// The postgres implementation compiles query descriptors into parameterized
// SQL; the memory implementation backs tests.
package store

import (
	"context"
	"errors"

	"taskboard/internal/models"
	"taskboard/internal/query"
)

var (
	// ErrNotFound means the id matched no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail means the users.email uniqueness constraint fired.
	ErrDuplicateEmail = errors.New("email already in use")
)

// TaskStore is the task half of the gateway. Insert assigns the record id.
type TaskStore interface {
	Find(ctx context.Context, spec query.Spec) ([]models.Task, error)
	Count(ctx context.Context, spec query.Spec) (int64, error)
	FindByID(ctx context.Context, id string) (*models.Task, error)
	Insert(ctx context.Context, t *models.Task) error
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id string) error

	// UnassignAllForUser clears assignment on every task pointing at the
	// user and returns the affected task ids.
	UnassignAllForUser(ctx context.Context, userID string) ([]string, error)
	// SetAssignedUserName rewrites the denormalized name on the given tasks.
	SetAssignedUserName(ctx context.Context, taskIDs []string, name string) error
}

// UserStore is the user half of the gateway.
type UserStore interface {
	Find(ctx context.Context, spec query.Spec) ([]models.User, error)
	Count(ctx context.Context, spec query.Spec) (int64, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error

	// AddPendingTask appends the task id to the user's pending list unless
	// it is already there.
	AddPendingTask(ctx context.Context, userID, taskID string) error
	// RemovePendingTask drops the task id from the user's pending list;
	// absence is not an error.
	RemovePendingTask(ctx context.Context, userID, taskID string) error
}
