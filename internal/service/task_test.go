package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/cache"
	"taskboard/internal/models"
	"taskboard/internal/store"
)

type fixture struct {
	tasks *store.MemoryTaskStore
	users *store.MemoryUserStore
	ts    *TaskService
	us    *UserService
}

func newFixture() *fixture {
	tasks := store.NewMemoryTaskStore()
	users := store.NewMemoryUserStore()
	c := cache.New(nil)
	sync := NewSynchronizer(tasks, users, c)
	return &fixture{
		tasks: tasks,
		users: users,
		ts:    NewTaskService(tasks, sync, c),
		us:    NewUserService(users, sync, c),
	}
}

func (f *fixture) user(t *testing.T, name, email string) *models.User {
	t.Helper()
	u, err := f.us.Create(context.Background(), UserInput{Name: name, Email: email})
	require.NoError(t, err)
	return u
}

func deadline(t *testing.T, s string) models.Time {
	t.Helper()
	var mt models.Time
	require.NoError(t, mt.UnmarshalJSON([]byte(`"`+s+`"`)))
	return mt
}

func TestCreateTaskAssignsAndBackReferences(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ann := f.user(t, "Ann", "ann@x.com")

	task, err := f.ts.Create(ctx, TaskInput{
		Name:         "T1",
		Deadline:     deadline(t, "2025-01-01"),
		AssignedUser: ann.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, ann.ID, task.AssignedUser)
	assert.Equal(t, "Ann", task.AssignedUserName)

	got, err := f.us.Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, []string(got.PendingTasks))
}

func TestCreateTaskUnresolvableUserFallsBackUnassigned(t *testing.T) {
	f := newFixture()
	task, err := f.ts.Create(context.Background(), TaskInput{
		Name:         "orphan",
		Deadline:     deadline(t, "2025-01-01"),
		AssignedUser: "no-such-user",
	})
	require.NoError(t, err)
	assert.Equal(t, "", task.AssignedUser)
	assert.Equal(t, models.UnassignedName, task.AssignedUserName)
}

func TestCreateTaskDefaults(t *testing.T) {
	f := newFixture()
	task, err := f.ts.Create(context.Background(), TaskInput{
		Name:     "bare",
		Deadline: deadline(t, "2025-06-30"),
	})
	require.NoError(t, err)
	assert.Equal(t, "", task.Description)
	assert.False(t, task.Completed)
	assert.Equal(t, "", task.AssignedUser)
	assert.Equal(t, models.UnassignedName, task.AssignedUserName)
	assert.False(t, task.DateCreated.IsZero())
	assert.NotEmpty(t, task.ID)
}

func TestUpdateTaskReassignsBetweenUsers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.user(t, "A", "a@x.com")
	b := f.user(t, "B", "b@x.com")

	task, err := f.ts.Create(ctx, TaskInput{
		Name: "T", Deadline: deadline(t, "2025-01-01"), AssignedUser: a.ID,
	})
	require.NoError(t, err)

	updated, err := f.ts.Update(ctx, task.ID, TaskInput{
		Name: "T", Deadline: deadline(t, "2025-01-01"), AssignedUser: b.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, updated.AssignedUser)
	assert.Equal(t, "B", updated.AssignedUserName)

	gotA, err := f.us.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.NotContains(t, []string(gotA.PendingTasks), task.ID)

	gotB, err := f.us.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, []string(gotB.PendingTasks))
}

func TestUpdateTaskSameAssigneeIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, "U", "u@x.com")

	task, err := f.ts.Create(ctx, TaskInput{
		Name: "T", Deadline: deadline(t, "2025-01-01"), AssignedUser: u.ID,
	})
	require.NoError(t, err)

	_, err = f.ts.Update(ctx, task.ID, TaskInput{
		Name: "T", Deadline: deadline(t, "2025-01-01"), AssignedUser: u.ID,
	})
	require.NoError(t, err)

	got, err := f.us.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, []string(got.PendingTasks), "no duplicate append")
}

func TestUpdateTaskEmptyAssigneeKeepsExisting(t *testing.T) {
	// an empty assignedUser in a full update is indistinguishable from an
	// omitted one, so the existing assignment survives
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, "U", "u@x.com")

	task, err := f.ts.Create(ctx, TaskInput{
		Name: "T", Deadline: deadline(t, "2025-01-01"), AssignedUser: u.ID,
	})
	require.NoError(t, err)

	updated, err := f.ts.Update(ctx, task.ID, TaskInput{
		Name: "renamed", Deadline: deadline(t, "2025-02-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, updated.AssignedUser)
	assert.Equal(t, "U", updated.AssignedUserName)
}

func TestUpdateTaskUnresolvableTargetUnassignsAndClearsOld(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, "U", "u@x.com")

	task, err := f.ts.Create(ctx, TaskInput{
		Name: "T", Deadline: deadline(t, "2025-01-01"), AssignedUser: u.ID,
	})
	require.NoError(t, err)

	updated, err := f.ts.Update(ctx, task.ID, TaskInput{
		Name: "T", Deadline: deadline(t, "2025-01-01"), AssignedUser: "gone",
	})
	require.NoError(t, err)
	assert.Equal(t, "", updated.AssignedUser)
	assert.Equal(t, models.UnassignedName, updated.AssignedUserName)

	got, err := f.us.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.NotContains(t, []string(got.PendingTasks), task.ID)
}

func TestUpdateTaskNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.ts.Update(context.Background(), "missing", TaskInput{
		Name: "x", Deadline: deadline(t, "2025-01-01"),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteTaskRemovesBackReference(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, "U", "u@x.com")

	task, err := f.ts.Create(ctx, TaskInput{
		Name: "T", Deadline: deadline(t, "2025-01-01"), AssignedUser: u.ID,
	})
	require.NoError(t, err)

	require.NoError(t, f.ts.Delete(ctx, task.ID))

	_, err = f.ts.Get(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := f.us.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, []string(got.PendingTasks))
}

func TestDeleteTaskNotFound(t *testing.T) {
	f := newFixture()
	err := f.ts.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
