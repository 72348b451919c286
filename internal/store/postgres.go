package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"taskboard/internal/models"
	"taskboard/internal/query"
)

const (
	taskColumns = "id, name, description, deadline, completed, assigned_user, assigned_user_name, date_created"
	userColumns = "id, name, email, pending_tasks, date_created"
)

// PostgresTaskStore implements TaskStore over a tasks table.
type PostgresTaskStore struct {
	db *sql.DB
}

func NewPostgresTaskStore(db *sql.DB) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Deadline, &t.Completed,
		&t.AssignedUser, &t.AssignedUserName, &t.DateCreated)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresTaskStore) Find(ctx context.Context, spec query.Spec) ([]models.Task, error) {
	sqlStr, args, err := buildSelect("tasks", taskColumns, spec)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *PostgresTaskStore) Count(ctx context.Context, spec query.Spec) (int64, error) {
	sqlStr, args, err := buildCount("tasks", spec)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&n)
	return n, err
}

func (s *PostgresTaskStore) FindByID(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *PostgresTaskStore) Insert(ctx context.Context, t *models.Task) error {
	t.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, name, description, deadline, completed, assigned_user, assigned_user_name, date_created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Name, t.Description, t.Deadline, t.Completed,
		t.AssignedUser, t.AssignedUserName, t.DateCreated)
	return err
}

func (s *PostgresTaskStore) Update(ctx context.Context, t *models.Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks
		 SET name = $2, description = $3, deadline = $4, completed = $5,
		     assigned_user = $6, assigned_user_name = $7, date_created = $8
		 WHERE id = $1`,
		t.ID, t.Name, t.Description, t.Deadline, t.Completed,
		t.AssignedUser, t.AssignedUserName, t.DateCreated)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresTaskStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresTaskStore) UnassignAllForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE tasks SET assigned_user = '', assigned_user_name = $2
		 WHERE assigned_user = $1 RETURNING id`,
		userID, models.UnassignedName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresTaskStore) SetAssignedUserName(ctx context.Context, taskIDs []string, name string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET assigned_user_name = $2 WHERE id = ANY($1)",
		pq.Array(taskIDs), name)
	return err
}

// PostgresUserStore implements UserStore over a users table. pending_tasks
// is a TEXT[] column; the idempotent append and the removal are single
// statements so concurrent callers cannot double-append.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PendingTasks, &u.DateCreated)
	if err != nil {
		return nil, err
	}
	if u.PendingTasks == nil {
		u.PendingTasks = pq.StringArray{}
	}
	return &u, nil
}

func (s *PostgresUserStore) Find(ctx context.Context, spec query.Spec) ([]models.User, error) {
	sqlStr, args, err := buildSelect("users", userColumns, spec)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *PostgresUserStore) Count(ctx context.Context, spec query.Spec) (int64, error) {
	sqlStr, args, err := buildCount("users", spec)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&n)
	return n, err
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *PostgresUserStore) Insert(ctx context.Context, u *models.User) error {
	u.ID = uuid.NewString()
	if u.PendingTasks == nil {
		u.PendingTasks = pq.StringArray{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, pending_tasks, date_created)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PendingTasks, u.DateCreated)
	return translateUniqueViolation(err)
}

func (s *PostgresUserStore) Update(ctx context.Context, u *models.User) error {
	if u.PendingTasks == nil {
		u.PendingTasks = pq.StringArray{}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, pending_tasks = $4, date_created = $5
		 WHERE id = $1`,
		u.ID, u.Name, u.Email, u.PendingTasks, u.DateCreated)
	if err != nil {
		return translateUniqueViolation(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresUserStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresUserStore) AddPendingTask(ctx context.Context, userID, taskID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET pending_tasks = array_append(pending_tasks, $2)
		 WHERE id = $1 AND NOT ($2 = ANY(pending_tasks))`,
		userID, taskID)
	return err
}

func (s *PostgresUserStore) RemovePendingTask(ctx context.Context, userID, taskID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET pending_tasks = array_remove(pending_tasks, $2) WHERE id = $1",
		userID, taskID)
	return err
}

// translateUniqueViolation maps the unique-constraint error class to
// ErrDuplicateEmail; users.email is the only unique column.
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}
