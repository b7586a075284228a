package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/taskman-api/internal/domain"
)

// TaskListOptions controls filtering, sorting, and pagination of task
// listings. The zero value lists every task of the owner in creation order.
type TaskListOptions struct {
	// Completed filters by completion state when non-nil.
	Completed *bool

	// SortBy names the field to sort on (createdAt, updatedAt, description,
	// completed). An unrecognized field falls back to creation order; it
	// never fails the request.
	SortBy string

	// SortDesc reverses the sort order.
	SortDesc bool

	// Limit caps the number of returned tasks. Zero means no limit.
	Limit int

	// Skip is the number of tasks to skip from the start of the result set.
	Skip int
}

// TaskStore defines the interface for task data persistence.
// Every read and write is scoped to the owning user; a task that exists but
// belongs to someone else is indistinguishable from one that does not exist.
type TaskStore interface {
	// Create saves a new task to the store.
	Create(ctx context.Context, task *domain.Task) error

	// GetByOwnerAndID retrieves a task by ID, scoped to the owner.
	// Returns ErrTaskNotFound when no such task is owned by ownerID.
	GetByOwnerAndID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Task, error)

	// List returns the owner's tasks with filtering, sorting, and
	// pagination applied server-side. Returns an empty slice, never nil,
	// when nothing matches.
	List(ctx context.Context, ownerID uuid.UUID, opts TaskListOptions) ([]*domain.Task, error)

	// Update persists changes to a task's description and completion state,
	// scoped to the owner. Returns ErrTaskNotFound when no such task is
	// owned by ownerID.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task by ID, scoped to the owner.
	// Returns ErrTaskNotFound when no such task is owned by ownerID.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	// DeleteByOwner removes every task owned by the given user. Used by the
	// account-deletion cascade; deleting zero tasks is not an error, which
	// keeps the cascade idempotent.
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error

	// WithTx returns a TaskStore bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore
}
