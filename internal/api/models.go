package api

import (
	"time"

	"github.com/google/uuid"
)

// User-facing status messages. These replace the original dashboard's
// one-shot flash messages; clients decide how to render them.
const (
	MsgTaskCreated   = "Task Created Successfully"
	MsgTaskUpdated   = "Task Updated Successfully"
	MsgTaskDeleted   = "Task Deleted Successfully"
	MsgTaskCompleted = "Task marked as completed and email sent!"
	MsgTaskNotFound  = "Unable to locate the task"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CreateTaskRequest defines the payload for creating a new task.
type CreateTaskRequest struct {
	Title       string `json:"title"       validate:"required,min=1"`
	Description string `json:"description"`
}

// UpdateTaskRequest defines the payload for updating an existing task.
// Completed may move in either direction here; the dedicated complete
// endpoint only moves it forward.
type UpdateTaskRequest struct {
	Title       string `json:"title"       validate:"required,min=1"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TaskResponse represents the response data for a single task.
type TaskResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskMessageResponse pairs a task with a user-facing status message.
type TaskMessageResponse struct {
	Message string       `json:"message"`
	Task    TaskResponse `json:"task"`
}

// MessageResponse carries only a user-facing status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// CalendarEntryResponse is the calendar projection of a completed task.
type CalendarEntryResponse struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	Description string `json:"description"`
}

// DashboardResponse is the payload for the task index view: the
// pending/completed partition, the three completion rates, and the
// calendar-shaped view of completed tasks.
type DashboardResponse struct {
	Pending           []TaskResponse          `json:"pending"`
	Completed         []TaskResponse          `json:"completed"`
	DailyCompletion   float64                 `json:"daily_completion"`
	WeeklyCompletion  float64                 `json:"weekly_completion"`
	MonthlyCompletion float64                 `json:"monthly_completion"`
	Calendar          []CalendarEntryResponse `json:"calendar"`
}

// TaskListResponse is the payload for the completed-tasks listing.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}
