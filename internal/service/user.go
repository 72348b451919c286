package service

import (
	"context"
	"errors"

	"github.com/lib/pq"

	"taskboard/internal/cache"
	"taskboard/internal/models"
	"taskboard/internal/query"
	"taskboard/internal/store"
)

// UserService owns user CRUD, email uniqueness, and the unassign/reassign
// half of the consistency protocol.
type UserService struct {
	users store.UserStore
	sync  *Synchronizer
	cache *cache.Cache
}

func NewUserService(users store.UserStore, sync *Synchronizer, c *cache.Cache) *UserService {
	return &UserService{users: users, sync: sync, cache: c}
}

// UserInput is a full user payload. A nil PendingTasks means the field was
// omitted; on update it replaces the list with empty either way.
type UserInput struct {
	Name         string
	Email        string
	PendingTasks []string
	DateCreated  *models.Time
}

func (s *UserService) List(ctx context.Context, spec query.Spec) ([]models.User, error) {
	return s.users.Find(ctx, spec)
}

func (s *UserService) Count(ctx context.Context, spec query.Spec) (int64, error) {
	return s.users.Count(ctx, spec)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.cache.GetUser(ctx, id); ok {
		return u, nil
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetUser(ctx, u)
	return u, nil
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	u := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PendingTasks: pq.StringArray{},
		DateCreated:  models.Now(),
	}
	if in.PendingTasks != nil {
		u.PendingTasks = pq.StringArray(in.PendingTasks)
	}
	if in.DateCreated != nil && !in.DateCreated.IsZero() {
		u.DateCreated = *in.DateCreated
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update replaces the user. A changed email is checked against the other
// users first; the store's uniqueness constraint remains the backstop. A
// non-empty pendingTasks payload fans the user's new name out to the named
// tasks, without clearing assignment on tasks dropped from the list.
func (s *UserService) Update(ctx context.Context, id string, in UserInput) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != u.Email {
		existing, err := s.users.FindByEmail(ctx, in.Email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, store.ErrDuplicateEmail
		}
	}

	if len(in.PendingTasks) > 0 {
		s.sync.PushAssignedName(ctx, in.PendingTasks, in.Name)
	}

	u.Name = in.Name
	u.Email = in.Email
	u.PendingTasks = pq.StringArray{}
	if in.PendingTasks != nil {
		u.PendingTasks = pq.StringArray(in.PendingTasks)
	}
	if in.DateCreated != nil && !in.DateCreated.IsZero() {
		u.DateCreated = *in.DateCreated
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.cache.DropUsers(ctx, u.ID)
	s.cache.SetUser(ctx, u)
	return u, nil
}

// Delete removes the user after cascading an unassign across every task
// that points at it. The cascade is best-effort; the delete proceeds
// regardless.
func (s *UserService) Delete(ctx context.Context, id string) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	s.sync.UnassignAllFor(ctx, u.ID)
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.DropUsers(ctx, id)
	return nil
}
