package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID     = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID = errors.New("task user ID cannot be empty")
	ErrEmptyTaskTitle  = errors.New("task title cannot be empty")
)

// Task represents a user-owned unit of work. A task starts pending and
// is either completed through the dedicated complete operation or toggled
// through a full update. Deleting a task removes it entirely.
type Task struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask creates a new Task owned by the given user.
// It generates a new UUID for the task ID, marks the task as not completed,
// and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTask(userID uuid.UUID, title, description string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}

	if t.Title == "" {
		return ErrEmptyTaskTitle
	}

	return nil
}

// Apply overwrites the task's mutable fields and bumps the UpdatedAt
// timestamp. Completed may move in either direction here; the one-way
// transition lives in the complete operation.
// Returns an error if the resulting task is invalid.
func (t *Task) Apply(title, description string, completed bool) error {
	t.Title = title
	t.Description = description
	t.Completed = completed
	t.UpdatedAt = time.Now().UTC()
	return t.Validate()
}

// MarkCompleted sets the completed flag and bumps the UpdatedAt timestamp.
// There is no guard against completing an already-completed task.
func (t *Task) MarkCompleted() {
	t.Completed = true
	t.UpdatedAt = time.Now().UTC()
}
