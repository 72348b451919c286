package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// UnassignedName is the sentinel stored in Task.AssignedUserName when the
// task has no assignee.
const UnassignedName = "unassigned"

// Time wraps time.Time so request bodies may carry timestamps as RFC3339,
// plain dates ("2025-01-01") or epoch milliseconds.
type Time struct {
	time.Time
}

func Now() Time {
	return Time{time.Now().UTC()}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if !strings.HasPrefix(s, `"`) {
		// bare number: epoch milliseconds
		ms, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %s", s)
		}
		t.Time = time.UnixMilli(int64(ms)).UTC()
		return nil
	}
	s = strings.Trim(s, `"`)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t Time) Value() (driver.Value, error) {
	return t.Time, nil
}

func (t *Time) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into models.Time", src)
	}
}

// Task is a single unit of work, optionally assigned to a user.
// AssignedUser holds the assignee's id or "" when unassigned;
// AssignedUserName is a denormalized copy of the assignee's name kept in
// sync by the relationship synchronizer.
type Task struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Deadline         Time   `json:"deadline"`
	Completed        bool   `json:"completed"`
	AssignedUser     string `json:"assignedUser"`
	AssignedUserName string `json:"assignedUserName"`
	DateCreated      Time   `json:"dateCreated"`
}

// User owns an ordered list of pending task ids mirroring every task whose
// AssignedUser points back at it.
type User struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	PendingTasks pq.StringArray `json:"pendingTasks"`
	DateCreated  Time           `json:"dateCreated"`
}
