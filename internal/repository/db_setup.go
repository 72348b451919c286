package repository

import (
	"database/sql"
)

// CreateTables bootstraps the two record tables. Email uniqueness lives
// here as a constraint; the task/user relationship deliberately does not —
// it is maintained by the relationship synchronizer, not the store.
func CreateTables(db *sql.DB) error {
	query := `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    pending_tasks TEXT[] NOT NULL DEFAULT '{}',
    date_created TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    deadline TIMESTAMPTZ NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    assigned_user TEXT NOT NULL DEFAULT '',
    assigned_user_name TEXT NOT NULL DEFAULT 'unassigned',
    date_created TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_assigned_user ON tasks (assigned_user);
`
	_, err := db.Exec(query)
	return err
}

// DropTables removes both record tables; used by the integration tests.
func DropTables(db *sql.DB) error {
	_, err := db.Exec(`
    DROP TABLE IF EXISTS tasks;
    DROP TABLE IF EXISTS users;
    `)
	return err
}
