package mocks

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing, backed by an
// in-memory slice. Individual methods can be overridden through the Fn
// fields.
type MockTaskStore struct {
	CreateFn func(ctx context.Context, task *domain.Task) error
	ListFn   func(ctx context.Context, ownerID uuid.UUID, opts store.TaskListOptions) ([]*domain.Task, error)
	UpdateFn func(ctx context.Context, task *domain.Task) error
	DeleteFn func(ctx context.Context, ownerID, id uuid.UUID) error

	Tasks []*domain.Task

	CreateError error
	ListError   error
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates a new mock store with initialized defaults.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{}
}

// Create implements the TaskStore interface
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Tasks = append(m.Tasks, task)
	return nil
}

// GetByOwnerAndID implements the TaskStore interface
func (m *MockTaskStore) GetByOwnerAndID(
	ctx context.Context,
	ownerID, id uuid.UUID,
) (*domain.Task, error) {
	for _, task := range m.Tasks {
		if task.ID == id && task.OwnerID == ownerID {
			return task, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

// List implements the TaskStore interface. It applies the completed filter,
// sorting and pagination the way the real store does.
func (m *MockTaskStore) List(
	ctx context.Context,
	ownerID uuid.UUID,
	opts store.TaskListOptions,
) ([]*domain.Task, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, ownerID, opts)
	}
	if m.ListError != nil {
		return nil, m.ListError
	}

	matched := []*domain.Task{}
	for _, task := range m.Tasks {
		if task.OwnerID != ownerID {
			continue
		}
		if opts.Completed != nil && task.Completed != *opts.Completed {
			continue
		}
		matched = append(matched, task)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		var less bool
		switch opts.SortBy {
		case "description":
			less = matched[i].Description < matched[j].Description
		case "completed":
			less = !matched[i].Completed && matched[j].Completed
		case "updatedAt":
			less = matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
		default:
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if opts.SortDesc {
			return !less
		}
		return less
	})

	if opts.Skip > 0 {
		if opts.Skip >= len(matched) {
			return []*domain.Task{}, nil
		}
		matched = matched[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

// Update implements the TaskStore interface
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	for i, existing := range m.Tasks {
		if existing.ID == task.ID && existing.OwnerID == task.OwnerID {
			m.Tasks[i] = task
			return nil
		}
	}
	return store.ErrTaskNotFound
}

// Delete implements the TaskStore interface
func (m *MockTaskStore) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, ownerID, id)
	}
	for i, task := range m.Tasks {
		if task.ID == id && task.OwnerID == ownerID {
			m.Tasks = append(m.Tasks[:i], m.Tasks[i+1:]...)
			return nil
		}
	}
	return store.ErrTaskNotFound
}

// DeleteByOwner implements the TaskStore interface
func (m *MockTaskStore) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	kept := m.Tasks[:0]
	for _, task := range m.Tasks {
		if task.OwnerID != ownerID {
			kept = append(kept, task)
		}
	}
	m.Tasks = kept
	return nil
}

// WithTx implements the TaskStore interface. The mock has no transaction
// state, so it returns itself.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}
