package service

import (
	"context"

	"taskboard/internal/cache"
	"taskboard/internal/models"
	"taskboard/internal/query"
	"taskboard/internal/store"
)

// TaskService owns task CRUD and the assign-task-to-user half of the
// consistency protocol.
type TaskService struct {
	tasks store.TaskStore
	sync  *Synchronizer
	cache *cache.Cache
}

func NewTaskService(tasks store.TaskStore, sync *Synchronizer, c *cache.Cache) *TaskService {
	return &TaskService{tasks: tasks, sync: sync, cache: c}
}

// TaskInput is a full task payload. Pointer fields distinguish omitted from
// zero; AssignedUser deliberately does not — an empty string in the payload
// reads the same as an omitted field, so on update it falls back to the
// existing assignment.
type TaskInput struct {
	Name         string
	Description  *string
	Deadline     models.Time
	Completed    *bool
	AssignedUser string
	DateCreated  *models.Time
}

func (s *TaskService) List(ctx context.Context, spec query.Spec) ([]models.Task, error) {
	return s.tasks.Find(ctx, spec)
}

func (s *TaskService) Count(ctx context.Context, spec query.Spec) (int64, error) {
	return s.tasks.Count(ctx, spec)
}

func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	if t, ok := s.cache.GetTask(ctx, id); ok {
		return t, nil
	}
	t, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetTask(ctx, t)
	return t, nil
}

// Create stores a new task. When the requested assignee does not resolve,
// the task is stored unassigned rather than rejected; when it does, the
// pending-list append happens after the insert and is best-effort.
func (s *TaskService) Create(ctx context.Context, in TaskInput) (*models.Task, error) {
	t := &models.Task{
		Name:             in.Name,
		Deadline:         in.Deadline,
		AssignedUserName: models.UnassignedName,
		DateCreated:      models.Now(),
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	if in.DateCreated != nil && !in.DateCreated.IsZero() {
		t.DateCreated = *in.DateCreated
	}
	if in.AssignedUser != "" {
		if u := s.sync.ResolveUser(ctx, in.AssignedUser); u != nil {
			t.AssignedUser = u.ID
			t.AssignedUserName = u.Name
		}
	}

	if err := s.tasks.Insert(ctx, t); err != nil {
		return nil, err
	}
	if t.AssignedUser != "" {
		s.sync.AddPending(ctx, t.AssignedUser, t.ID)
	}
	return t, nil
}

// Update replaces the task and re-points the back-references. The removal
// from the previous assignee keys off the requested target, so it happens
// even when that target fails to resolve and the task lands unassigned.
func (s *TaskService) Update(ctx context.Context, id string, in TaskInput) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldAssigned := task.AssignedUser
	target := in.AssignedUser
	if target == "" {
		target = oldAssigned
	}

	task.Name = in.Name
	task.Deadline = in.Deadline
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Completed != nil {
		task.Completed = *in.Completed
	}
	if in.DateCreated != nil && !in.DateCreated.IsZero() {
		task.DateCreated = *in.DateCreated
	}
	task.AssignedUser = target

	if target != "" {
		if u := s.sync.ResolveUser(ctx, target); u != nil {
			task.AssignedUserName = u.Name
			s.sync.AddPending(ctx, u.ID, task.ID)
		} else {
			task.AssignedUser = ""
			task.AssignedUserName = models.UnassignedName
		}
		if oldAssigned != "" && oldAssigned != target {
			s.sync.RemovePending(ctx, oldAssigned, task.ID)
		}
	} else {
		if oldAssigned != "" {
			s.sync.RemovePending(ctx, oldAssigned, task.ID)
		}
		task.AssignedUserName = models.UnassignedName
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	s.cache.DropTasks(ctx, task.ID)
	s.cache.SetTask(ctx, task)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if task.AssignedUser != "" {
		s.sync.RemovePending(ctx, task.AssignedUser, task.ID)
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.DropTasks(ctx, id)
	return nil
}
