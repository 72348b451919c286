package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"taskboard/internal/models"
	"taskboard/internal/query"
)

// MemoryTaskStore and MemoryUserStore are in-memory gateways with the same
// contract as the postgres ones. They back the package tests and make the
// service layer runnable without a database.

type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
	order []string
}

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: map[string]models.Task{}}
}

func taskDoc(t models.Task) map[string]interface{} {
	return map[string]interface{}{
		"id":                 t.ID,
		"name":               t.Name,
		"description":        t.Description,
		"deadline":           t.Deadline.Time,
		"completed":          t.Completed,
		"assigned_user":      t.AssignedUser,
		"assigned_user_name": t.AssignedUserName,
		"date_created":       t.DateCreated.Time,
	}
}

func (s *MemoryTaskStore) matching(spec query.Spec) []models.Task {
	out := []models.Task{}
	for _, id := range s.order {
		t := s.tasks[id]
		if spec.Filter == nil || evalFilter(spec.Filter, taskDoc(t)) {
			out = append(out, t)
		}
	}
	return out
}

func (s *MemoryTaskStore) Find(ctx context.Context, spec query.Spec) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.matching(spec)
	sortSlice(out, spec.Sort, func(t models.Task) map[string]interface{} { return taskDoc(t) })
	return page(out, spec.Skip, spec.Limit), nil
}

func (s *MemoryTaskStore) Count(ctx context.Context, spec query.Spec) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(spec))), nil
}

func (s *MemoryTaskStore) FindByID(ctx context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryTaskStore) Insert(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	s.tasks[t.ID] = *t
	s.order = append(s.order, t.ID)
	return nil
}

func (s *MemoryTaskStore) Update(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	s.tasks[t.ID] = *t
	return nil
}

func (s *MemoryTaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryTaskStore) UnassignAllForUser(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, t := range s.tasks {
		if t.AssignedUser == userID {
			t.AssignedUser = ""
			t.AssignedUserName = models.UnassignedName
			s.tasks[id] = t
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemoryTaskStore) SetAssignedUserName(ctx context.Context, taskIDs []string, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range taskIDs {
		if t, ok := s.tasks[id]; ok {
			t.AssignedUserName = name
			s.tasks[id] = t
		}
	}
	return nil
}

type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
	order []string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: map[string]models.User{}}
}

func userDoc(u models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":            u.ID,
		"name":          u.Name,
		"email":         u.Email,
		"pending_tasks": []string(u.PendingTasks),
		"date_created":  u.DateCreated.Time,
	}
}

func (s *MemoryUserStore) matching(spec query.Spec) []models.User {
	out := []models.User{}
	for _, id := range s.order {
		u := s.users[id]
		if spec.Filter == nil || evalFilter(spec.Filter, userDoc(u)) {
			u.PendingTasks = append(pq.StringArray{}, u.PendingTasks...)
			out = append(out, u)
		}
	}
	return out
}

func (s *MemoryUserStore) Find(ctx context.Context, spec query.Spec) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.matching(spec)
	sortSlice(out, spec.Sort, func(u models.User) map[string]interface{} { return userDoc(u) })
	return page(out, spec.Skip, spec.Limit), nil
}

func (s *MemoryUserStore) Count(ctx context.Context, spec query.Spec) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(spec))), nil
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.PendingTasks = append(pq.StringArray{}, u.PendingTasks...)
	return &u, nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if u := s.users[id]; u.Email == email {
			u.PendingTasks = append(pq.StringArray{}, u.PendingTasks...)
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) Insert(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	if u.PendingTasks == nil {
		u.PendingTasks = pq.StringArray{}
	}
	s.users[u.ID] = *u
	s.order = append(s.order, u.ID)
	return nil
}

func (s *MemoryUserStore) Update(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.PendingTasks == nil {
		u.PendingTasks = pq.StringArray{}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryUserStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryUserStore) AddPendingTask(ctx context.Context, userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	for _, id := range u.PendingTasks {
		if id == taskID {
			return nil
		}
	}
	u.PendingTasks = append(u.PendingTasks, taskID)
	s.users[userID] = u
	return nil
}

func (s *MemoryUserStore) RemovePendingTask(ctx context.Context, userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	kept := make(pq.StringArray, 0, len(u.PendingTasks))
	for _, id := range u.PendingTasks {
		if id != taskID {
			kept = append(kept, id)
		}
	}
	u.PendingTasks = kept
	s.users[userID] = u
	return nil
}

// ---- descriptor evaluation ----

func evalFilter(f *query.Filter, doc map[string]interface{}) bool {
	switch f.Op {
	case query.OpAnd:
		for i := range f.Children {
			if !evalFilter(&f.Children[i], doc) {
				return false
			}
		}
		return true
	case query.OpOr:
		for i := range f.Children {
			if evalFilter(&f.Children[i], doc) {
				return true
			}
		}
		return false
	case query.OpEq:
		if list, ok := doc[f.Field].([]string); ok {
			want, _ := f.Value.(string)
			for _, item := range list {
				if item == want {
					return true
				}
			}
			return false
		}
		return compare(doc[f.Field], f.Value) == 0
	case query.OpNe:
		return compare(doc[f.Field], f.Value) != 0
	case query.OpGt:
		return compare(doc[f.Field], f.Value) > 0
	case query.OpGte:
		return compare(doc[f.Field], f.Value) >= 0
	case query.OpLt:
		return compare(doc[f.Field], f.Value) < 0
	case query.OpLte:
		return compare(doc[f.Field], f.Value) <= 0
	case query.OpIn:
		for _, v := range f.Values {
			if compare(doc[f.Field], v) == 0 {
				return true
			}
		}
		return false
	case query.OpNin:
		for _, v := range f.Values {
			if compare(doc[f.Field], v) == 0 {
				return false
			}
		}
		return true
	}
	return false
}

// compare orders a stored value against a filter value, coercing strings to
// timestamps when the stored side is a time. Returns -1/0/1; incomparable
// pairs order by string form.
func compare(stored, filter interface{}) int {
	switch sv := stored.(type) {
	case time.Time:
		ft, ok := coerceTime(filter)
		if !ok {
			return -1
		}
		switch {
		case sv.Before(ft):
			return -1
		case sv.After(ft):
			return 1
		default:
			return 0
		}
	case bool:
		fb, ok := filter.(bool)
		if !ok {
			return -1
		}
		switch {
		case sv == fb:
			return 0
		case sv:
			return 1
		default:
			return -1
		}
	case float64:
		ff, ok := filter.(float64)
		if !ok {
			return -1
		}
		switch {
		case sv < ff:
			return -1
		case sv > ff:
			return 1
		default:
			return 0
		}
	case string:
		fs, ok := filter.(string)
		if !ok {
			return -1
		}
		return strings.Compare(sv, fs)
	default:
		return -1
	}
}

func coerceTime(v interface{}) (time.Time, bool) {
	switch tv := v.(type) {
	case time.Time:
		return tv, true
	case float64:
		return time.UnixMilli(int64(tv)).UTC(), true
	case string:
		var mt models.Time
		if err := mt.UnmarshalJSON([]byte(`"` + tv + `"`)); err == nil {
			return mt.Time, true
		}
	}
	return time.Time{}, false
}

func sortSlice[T any](items []T, fields []query.SortField, doc func(T) map[string]interface{}) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := doc(items[i]), doc(items[j])
		for _, f := range fields {
			c := compare(di[f.Field], dj[f.Field])
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
