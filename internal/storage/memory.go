package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"job-portal/pkg/portal"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStorage is a Store kept in process memory. It mirrors the Mongo
// semantics the route groups rely on (unique email, unique job/applicant
// pair, newest-first listing) and is used when exercising handlers without
// a database.
type MemoryStorage struct {
	mu           sync.RWMutex
	users        map[primitive.ObjectID]portal.User
	jobs         map[primitive.ObjectID]portal.Job
	applications map[primitive.ObjectID]portal.Application
	closed       bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:        make(map[primitive.ObjectID]portal.User),
		jobs:         make(map[primitive.ObjectID]portal.Job),
		applications: make(map[primitive.ObjectID]portal.Application),
	}
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("memory storage closed")
	}
	return ctx.Err()
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) CreateUser(_ context.Context, u *portal.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStorage) GetUser(_ context.Context, id primitive.ObjectID) (*portal.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), ErrNotFound)
	}
	return &u, nil
}

func (m *MemoryStorage) GetUserByEmail(_ context.Context, email string) (*portal.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (m *MemoryStorage) UpdateUser(_ context.Context, u *portal.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return fmt.Errorf("users %s: %w", u.ID.Hex(), ErrNotFound)
	}
	for id, existing := range m.users {
		if id != u.ID && existing.Email == u.Email {
			return fmt.Errorf("users %s: %w", u.ID.Hex(), ErrDuplicate)
		}
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStorage) CreateJob(_ context.Context, j *portal.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j.ID.IsZero() {
		j.ID = primitive.NewObjectID()
	}
	j.CreatedAt = time.Now().UTC()
	j.UpdatedAt = j.CreatedAt
	if j.Status == "" {
		j.Status = portal.JobStatusOpen
	}
	m.jobs[j.ID] = *j
	return nil
}

func (m *MemoryStorage) GetJob(_ context.Context, id primitive.ObjectID) (*portal.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id.Hex(), ErrNotFound)
	}
	return &j, nil
}

func (m *MemoryStorage) ListJobs(_ context.Context, filter JobFilter) ([]*portal.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*portal.Job, 0)
	for _, j := range m.jobs {
		j := j
		if filter.Query != "" && !containsFold(j.Title, filter.Query) {
			continue
		}
		if filter.Location != "" && !containsFold(j.Location, filter.Location) {
			continue
		}
		if filter.Type != "" && j.Type != filter.Type {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if !filter.EmployerID.IsZero() && j.EmployerID != filter.EmployerID {
			continue
		}
		jobs = append(jobs, &j)
	}

	sort.SliceStable(jobs, func(a, b int) bool {
		return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
	})
	return paginate(jobs, filter.Offset, filter.Limit), nil
}

func (m *MemoryStorage) UpdateJob(_ context.Context, j *portal.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[j.ID]; !ok {
		return fmt.Errorf("jobs %s: %w", j.ID.Hex(), ErrNotFound)
	}
	j.UpdatedAt = time.Now().UTC()
	m.jobs[j.ID] = *j
	return nil
}

func (m *MemoryStorage) DeleteJob(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return fmt.Errorf("job %s: %w", id.Hex(), ErrNotFound)
	}
	delete(m.jobs, id)
	for appID, a := range m.applications {
		if a.JobID == id {
			delete(m.applications, appID)
		}
	}
	return nil
}

func (m *MemoryStorage) CreateApplication(_ context.Context, a *portal.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.applications {
		if existing.JobID == a.JobID && existing.ApplicantID == a.ApplicantID {
			return fmt.Errorf("application for job %s: %w", a.JobID.Hex(), ErrDuplicate)
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	if a.Status == "" {
		a.Status = portal.ApplicationPending
	}
	m.applications[a.ID] = *a
	return nil
}

func (m *MemoryStorage) GetApplication(_ context.Context, id primitive.ObjectID) (*portal.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.applications[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id.Hex(), ErrNotFound)
	}
	return &a, nil
}

func (m *MemoryStorage) ListApplications(_ context.Context, filter ApplicationFilter) ([]*portal.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	apps := make([]*portal.Application, 0)
	for _, a := range m.applications {
		a := a
		if !filter.JobID.IsZero() && a.JobID != filter.JobID {
			continue
		}
		if !filter.ApplicantID.IsZero() && a.ApplicantID != filter.ApplicantID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		apps = append(apps, &a)
	}

	sort.SliceStable(apps, func(i, k int) bool {
		return apps[i].CreatedAt.After(apps[k].CreatedAt)
	})
	return apps, nil
}

func (m *MemoryStorage) UpdateApplication(_ context.Context, a *portal.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.applications[a.ID]; !ok {
		return fmt.Errorf("applications %s: %w", a.ID.Hex(), ErrNotFound)
	}
	a.UpdatedAt = time.Now().UTC()
	m.applications[a.ID] = *a
	return nil
}

func (m *MemoryStorage) DeleteApplication(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.applications[id]; !ok {
		return fmt.Errorf("application %s: %w", id.Hex(), ErrNotFound)
	}
	delete(m.applications, id)
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
