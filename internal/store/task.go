package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/colehouse/taskline/internal/domain"
)

// TaskCounts holds the ownership-scoped counts backing a completion-rate
// calculation over a single window.
type TaskCounts struct {
	Total     int
	Completed int
}

// TaskStore defines the interface for task data persistence.
// Every read and mutation is scoped to an owning user: a task belonging to
// another user behaves exactly like a task that does not exist.
type TaskStore interface {
	// Create saves a new task to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetForUser retrieves a task by its ID, scoped to the owning user.
	// Returns ErrTaskNotFound if no task with that ID exists for the user.
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error)

	// FindByUser retrieves all of the user's tasks with the given completed
	// flag, in creation order. Returns an empty slice if none match.
	FindByUser(ctx context.Context, userID uuid.UUID, completed bool) ([]*domain.Task, error)

	// Update saves changes to an existing task, scoped to the owning user.
	// Returns ErrTaskNotFound if the task does not exist for the user.
	// Returns validation errors if the task data is invalid.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task by its ID, scoped to the owning user.
	// Returns ErrTaskNotFound if the task does not exist for the user.
	// This operation is permanent and cannot be undone.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// CountSince returns the total and completed counts of the user's tasks
	// created at or after the given instant.
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (TaskCounts, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) TaskStore
}
