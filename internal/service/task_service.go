package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/colehouse/taskline/internal/domain"
	"github.com/colehouse/taskline/internal/platform/logger"
	"github.com/colehouse/taskline/internal/store"
)

// CalendarEntry is the calendar-shaped projection of a completed task:
// the start date is the date portion of the task's last update, which for
// a completed task is the day it was completed.
type CalendarEntry struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	Description string `json:"description"`
}

// Dashboard is everything the task index view needs: the pending/completed
// partition, the three completion rates, and the calendar projection.
// Every task of the user appears in exactly one of Pending or Completed.
type Dashboard struct {
	Pending           []*domain.Task  `json:"pending"`
	Completed         []*domain.Task  `json:"completed"`
	DailyCompletion   float64         `json:"daily_completion"`
	WeeklyCompletion  float64         `json:"weekly_completion"`
	MonthlyCompletion float64         `json:"monthly_completion"`
	Calendar          []CalendarEntry `json:"calendar"`
}

// TaskService provides task lifecycle operations and completion statistics.
// Every operation is explicitly scoped to the acting user's ID; there is no
// ambient authentication state at this layer.
type TaskService interface {
	// List returns the user's dashboard: pending and completed tasks,
	// completion rates for day/week/month, and the calendar projection.
	List(ctx context.Context, userID uuid.UUID) (*Dashboard, error)

	// Create constructs and persists a new pending task for the user.
	Create(ctx context.Context, userID uuid.UUID, title, description string) (*domain.Task, error)

	// Get retrieves a single task owned by the user.
	// Returns ErrTaskNotFound if no such task exists for the user.
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error)

	// Update overwrites the task's title, description and completed flag.
	// Unlike Complete this may move the completed flag in either direction.
	// Returns ErrTaskNotFound if no such task exists for the user.
	Update(
		ctx context.Context,
		userID, id uuid.UUID,
		title, description string,
		completed bool,
	) (*domain.Task, error)

	// Delete removes the task permanently.
	// Returns ErrTaskNotFound if no such task exists for the user,
	// including on a repeated delete.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// Complete marks the task completed and sends a best-effort notification
	// email to the owner. A notification failure is logged, never returned.
	// Completing an already-completed task is allowed and re-sends the email.
	// Returns ErrTaskNotFound if no such task exists for the user.
	Complete(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error)

	// CompletedList returns all of the user's completed tasks.
	CompletedList(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	// CompletionRate returns the percentage (0-100) of the user's tasks
	// created within the period that are marked completed. Returns 0 when
	// no tasks were created within the period.
	CompletionRate(ctx context.Context, userID uuid.UUID, period domain.Period) (float64, error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	tasks    store.TaskStore
	users    store.UserStore
	notifier Notifier
	db       *sql.DB          // Optional; enables snapshot reads for the dashboard
	timeFunc func() time.Time // Injectable for deterministic statistics
	logger   *slog.Logger
}

// TaskServiceOption customizes a TaskService during construction.
type TaskServiceOption func(*taskServiceImpl)

// WithDB enables consistent dashboard snapshots by running the List reads
// inside a single database transaction. Without it, reads go straight to
// the store, which keeps the service usable against non-SQL fakes.
func WithDB(db *sql.DB) TaskServiceOption {
	return func(s *taskServiceImpl) {
		s.db = db
	}
}

// WithTimeFunc overrides the clock used for statistics windows.
func WithTimeFunc(timeFunc func() time.Time) TaskServiceOption {
	return func(s *taskServiceImpl) {
		if timeFunc != nil {
			s.timeFunc = timeFunc
		}
	}
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	users store.UserStore,
	notifier Notifier,
	logger *slog.Logger,
	opts ...TaskServiceOption,
) (TaskService, error) {
	if tasks == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "tasks store cannot be nil",
		}
	}
	if users == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "users store cannot be nil",
		}
	}
	if notifier == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "notifier cannot be nil",
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		tasks:    tasks,
		users:    users,
		notifier: notifier,
		timeFunc: time.Now,
		logger:   logger.With(slog.String("component", "task_service")),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// withSnapshot runs fn against a task store view. When the service is backed
// by a SQL database, all reads inside fn share one transaction so the
// dashboard's lists and counts describe a single consistent snapshot.
func (s *taskServiceImpl) withSnapshot(
	ctx context.Context,
	fn func(ctx context.Context, tasks store.TaskStore) error,
) error {
	if s.db == nil {
		return fn(ctx, s.tasks)
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.tasks.WithTx(tx))
	})
}

// List implements TaskService.List
func (s *taskServiceImpl) List(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	now := s.timeFunc()
	dashboard := &Dashboard{}

	err := s.withSnapshot(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		pending, err := tasks.FindByUser(ctx, userID, false)
		if err != nil {
			return NewTaskServiceError("list_tasks", "failed to load pending tasks", err)
		}

		completed, err := tasks.FindByUser(ctx, userID, true)
		if err != nil {
			return NewTaskServiceError("list_tasks", "failed to load completed tasks", err)
		}

		dashboard.Pending = pending
		dashboard.Completed = completed
		dashboard.Calendar = calendarEntries(completed)

		// Each period's rate is computed independently over its own window.
		rates := make(map[domain.Period]float64, len(domain.Periods))
		for _, period := range domain.Periods {
			counts, err := tasks.CountSince(ctx, userID, period.Start(now))
			if err != nil {
				return NewTaskServiceError("list_tasks", "failed to count tasks", err)
			}
			rates[period] = completionRate(counts)
		}
		dashboard.DailyCompletion = rates[domain.PeriodDay]
		dashboard.WeeklyCompletion = rates[domain.PeriodWeek]
		dashboard.MonthlyCompletion = rates[domain.PeriodMonth]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("dashboard assembled",
		"user_id", userID,
		"pending", len(dashboard.Pending),
		"completed", len(dashboard.Completed))
	return dashboard, nil
}

// Create implements TaskService.Create
func (s *taskServiceImpl) Create(
	ctx context.Context,
	userID uuid.UUID,
	title, description string,
) (*domain.Task, error) {
	task, err := domain.NewTask(userID, title, description)
	if err != nil {
		s.logger.Warn("failed to construct task",
			"error", err,
			"user_id", userID)
		return nil, NewTaskServiceError("create_task", "invalid task data", err)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		s.logger.Error("failed to persist task",
			"error", err,
			"user_id", userID,
			"task_id", task.ID)
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	s.logger.Info("task created",
		"task_id", task.ID,
		"user_id", userID)
	return task, nil
}

// Get implements TaskService.Get
func (s *taskServiceImpl) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetForUser(ctx, userID, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("failed to retrieve task",
			"error", err,
			"task_id", id,
			"user_id", userID)
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}

	return task, nil
}

// Update implements TaskService.Update
func (s *taskServiceImpl) Update(
	ctx context.Context,
	userID, id uuid.UUID,
	title, description string,
	completed bool,
) (*domain.Task, error) {
	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := task.Apply(title, description, completed); err != nil {
		s.logger.Warn("invalid task update",
			"error", err,
			"task_id", id,
			"user_id", userID)
		return nil, NewTaskServiceError("update_task", "invalid task data", err)
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("failed to save updated task",
			"error", err,
			"task_id", id,
			"user_id", userID)
		return nil, NewTaskServiceError("update_task", "failed to save task", err)
	}

	s.logger.Info("task updated",
		"task_id", id,
		"user_id", userID,
		"completed", completed)
	return task, nil
}

// Delete implements TaskService.Delete
func (s *taskServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.tasks.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		s.logger.Error("failed to delete task",
			"error", err,
			"task_id", id,
			"user_id", userID)
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	s.logger.Info("task deleted",
		"task_id", id,
		"user_id", userID)
	return nil
}

// Complete implements TaskService.Complete
// The state transition is the primary effect; the notification email is a
// best-effort side effect whose failure is logged and swallowed.
func (s *taskServiceImpl) Complete(
	ctx context.Context,
	userID, id uuid.UUID,
) (*domain.Task, error) {
	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	task.MarkCompleted()

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("failed to save completed task",
			"error", err,
			"task_id", id,
			"user_id", userID)
		return nil, NewTaskServiceError("complete_task", "failed to save task", err)
	}

	s.notifyCompletion(ctx, task)

	s.logger.Info("task completed",
		"task_id", id,
		"user_id", userID)
	return task, nil
}

// notifyCompletion resolves the owner's email address and sends the
// completion notification. Every failure here is logged and swallowed:
// the task is already completed and stays completed.
func (s *taskServiceImpl) notifyCompletion(ctx context.Context, task *domain.Task) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByID(ctx, task.UserID)
	if err != nil {
		log.Error("failed to resolve notification recipient",
			"error", err,
			"task_id", task.ID,
			"user_id", task.UserID)
		return
	}

	if err := s.notifier.Send(ctx, user.Email, task.Title, task.Description); err != nil {
		log.Error("failed to send completion email",
			"error", err,
			"task_id", task.ID,
			"user_id", task.UserID)
		return
	}

	log.Info("completion email sent",
		"task_id", task.ID,
		"user_id", task.UserID)
}

// CompletedList implements TaskService.CompletedList
func (s *taskServiceImpl) CompletedList(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Task, error) {
	completed, err := s.tasks.FindByUser(ctx, userID, true)
	if err != nil {
		s.logger.Error("failed to load completed tasks",
			"error", err,
			"user_id", userID)
		return nil, NewTaskServiceError("completed_list", "failed to load completed tasks", err)
	}

	return completed, nil
}

// CompletionRate implements TaskService.CompletionRate
func (s *taskServiceImpl) CompletionRate(
	ctx context.Context,
	userID uuid.UUID,
	period domain.Period,
) (float64, error) {
	if err := period.Validate(); err != nil {
		return 0, NewTaskServiceError("completion_rate", "invalid period", err)
	}

	counts, err := s.tasks.CountSince(ctx, userID, period.Start(s.timeFunc()))
	if err != nil {
		s.logger.Error("failed to count tasks",
			"error", err,
			"user_id", userID,
			"period", period)
		return 0, NewTaskServiceError("completion_rate", "failed to count tasks", err)
	}

	return completionRate(counts), nil
}
