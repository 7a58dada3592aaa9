package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colehouse/taskline/internal/domain"
	"github.com/colehouse/taskline/internal/store"
)

// fakeTaskStore is an in-memory TaskStore that preserves insertion order.
type fakeTaskStore struct {
	mu    sync.Mutex
	tasks []*domain.Task

	failWith error // when set, every call fails with this error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{}
}

func (s *fakeTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks = append(s.tasks, &copied)
	return nil
}

func (s *fakeTaskStore) GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range s.tasks {
		if task.ID == id && task.UserID == userID {
			copied := *task
			return &copied, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (s *fakeTaskStore) FindByUser(
	ctx context.Context,
	userID uuid.UUID,
	completed bool,
) ([]*domain.Task, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if task.UserID == userID && task.Completed == completed {
			copied := *task
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *fakeTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.tasks {
		if existing.ID == task.ID && existing.UserID == task.UserID {
			copied := *task
			s.tasks[i] = &copied
			return nil
		}
	}
	return store.ErrTaskNotFound
}

func (s *fakeTaskStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, task := range s.tasks {
		if task.ID == id && task.UserID == userID {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return store.ErrTaskNotFound
}

func (s *fakeTaskStore) CountSince(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) (store.TaskCounts, error) {
	if s.failWith != nil {
		return store.TaskCounts{}, s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var counts store.TaskCounts
	for _, task := range s.tasks {
		if task.UserID == userID && !task.CreatedAt.Before(since) {
			counts.Total++
			if task.Completed {
				counts.Completed++
			}
		}
	}
	return counts, nil
}

func (s *fakeTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return s
}

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, user := range users {
		s.users[user.ID] = user
	}
	return s
}

func (s *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return s
}

// recordingNotifier records completion notifications and optionally fails.
type recordingNotifier struct {
	mu        sync.Mutex
	sent      []sentNotification
	returnErr error
}

type sentNotification struct {
	recipient   string
	title       string
	description string
}

func (n *recordingNotifier) Send(ctx context.Context, recipient, title, description string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.returnErr != nil {
		return n.returnErr
	}
	n.sent = append(n.sent, sentNotification{recipient, title, description})
	return nil
}

func (n *recordingNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// testFixture bundles a service with its fakes for convenient assertions.
type testFixture struct {
	service  TaskService
	tasks    *fakeTaskStore
	users    *fakeUserStore
	notifier *recordingNotifier
	userID   uuid.UUID
}

func newTestFixture(t *testing.T, opts ...TaskServiceOption) *testFixture {
	t.Helper()

	owner := &domain.User{
		ID:             uuid.New(),
		Email:          "owner@example.com",
		HashedPassword: "$2a$10$hash",
	}

	tasks := newFakeTaskStore()
	users := newFakeUserStore(owner)
	notifier := &recordingNotifier{}

	svc, err := NewTaskService(tasks, users, notifier, slog.Default(), opts...)
	require.NoError(t, err)

	return &testFixture{
		service:  svc,
		tasks:    tasks,
		users:    users,
		notifier: notifier,
		userID:   owner.ID,
	}
}

func TestNewTaskServiceNilDependencies(t *testing.T) {
	tasks := newFakeTaskStore()
	users := newFakeUserStore()
	notifier := &recordingNotifier{}

	_, err := NewTaskService(nil, users, notifier, slog.Default())
	assert.Error(t, err)

	_, err = NewTaskService(tasks, nil, notifier, slog.Default())
	assert.Error(t, err)

	_, err = NewTaskService(tasks, users, nil, slog.Default())
	assert.Error(t, err)
}

func TestTaskServiceCreate(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	task, err := f.service.Create(ctx, f.userID, "Write report", "quarterly numbers")
	require.NoError(t, err)

	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, f.userID, task.UserID)
	assert.False(t, task.Completed, "new tasks must start pending")

	stored, err := f.tasks.GetForUser(ctx, f.userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, stored.Title)
}

func TestTaskServiceCreateInvalid(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.service.Create(context.Background(), f.userID, "", "no title")
	assert.Error(t, err)

	var serviceErr *TaskServiceError
	assert.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "create_task", serviceErr.Operation)
}

func TestTaskServiceGetScopedToOwner(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	task, err := f.service.Create(ctx, f.userID, "Private task", "")
	require.NoError(t, err)

	got, err := f.service.Get(ctx, f.userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	// Another user sees the same ID as nonexistent
	otherUser := uuid.New()
	_, err = f.service.Get(ctx, otherUser, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskServiceUpdate(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	task, err := f.service.Create(ctx, f.userID, "Draft", "first pass")
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, f.userID, task.ID, "Final", "second pass", true)
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.True(t, updated.Completed)

	// Update may reopen a completed task
	reopened, err := f.service.Update(ctx, f.userID, task.ID, "Final", "second pass", false)
	require.NoError(t, err)
	assert.False(t, reopened.Completed)
}

func TestTaskServiceUpdateNotFound(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.service.Update(
		context.Background(), f.userID, uuid.New(), "Title", "desc", false)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskServiceUpdateOwnership(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	task, err := f.service.Create(ctx, f.userID, "Mine", "")
	require.NoError(t, err)

	_, err = f.service.Update(ctx, uuid.New(), task.ID, "Hijacked", "", false)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	// Unchanged for the owner
	got, err := f.service.Get(ctx, f.userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Title)
}

func TestTaskServiceDelete(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	task, err := f.service.Create(ctx, f.userID, "Temporary", "")
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, f.userID, task.ID))

	_, err = f.service.Get(ctx, f.userID, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	// Deleting again reports not found
	err = f.service.Delete(ctx, f.userID, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskServiceComplete(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	task, err := f.service.Create(ctx, f.userID, "Ship release", "v2.1")
	require.NoError(t, err)

	completed, err := f.service.Complete(ctx, f.userID, task.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)

	require.Equal(t, 1, f.notifier.sentCount())
	sent := f.notifier.sent[0]
	assert.Equal(t, "owner@example.com", sent.recipient)
	assert.Equal(t, "Ship release", sent.title)
	assert.Equal(t, "v2.1", sent.description)
}

func TestTaskServiceCompleteAgainResendsEmail(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	task, err := f.service.Create(ctx, f.userID, "Repeat", "")
	require.NoError(t, err)

	_, err = f.service.Complete(ctx, f.userID, task.ID)
	require.NoError(t, err)
	_, err = f.service.Complete(ctx, f.userID, task.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, f.notifier.sentCount())
}

func TestTaskServiceCompleteNotifierFailure(t *testing.T) {
	f := newTestFixture(t)
	f.notifier.returnErr = errors.New("smtp connection refused")
	ctx := context.Background()

	task, err := f.service.Create(ctx, f.userID, "Still completes", "")
	require.NoError(t, err)

	// Notification failure must not surface to the caller
	completed, err := f.service.Complete(ctx, f.userID, task.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)

	stored, err := f.tasks.GetForUser(ctx, f.userID, task.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed, "completion must persist despite notifier failure")
}

func TestTaskServiceCompleteNotFound(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.service.Complete(context.Background(), f.userID, uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Equal(t, 0, f.notifier.sentCount())
}

func TestTaskServiceList(t *testing.T) {
	now := time.Date(2025, time.May, 15, 12, 0, 0, 0, time.UTC)
	f := newTestFixture(t, WithTimeFunc(func() time.Time { return now }))
	ctx := context.Background()

	// Four tasks created today, one completed: every window shows 25%.
	var taskIDs []uuid.UUID
	for _, title := range []string{"a", "b", "c", "d"} {
		task, err := f.service.Create(ctx, f.userID, title, "")
		require.NoError(t, err)
		task.CreatedAt = now.Add(-time.Hour)
		require.NoError(t, f.tasks.Update(ctx, task))
		taskIDs = append(taskIDs, task.ID)
	}
	_, err := f.service.Complete(ctx, f.userID, taskIDs[0])
	require.NoError(t, err)

	dashboard, err := f.service.List(ctx, f.userID)
	require.NoError(t, err)

	assert.Len(t, dashboard.Pending, 3)
	assert.Len(t, dashboard.Completed, 1)
	assert.Equal(t, 25.0, dashboard.DailyCompletion)
	assert.Equal(t, 25.0, dashboard.WeeklyCompletion)
	assert.Equal(t, 25.0, dashboard.MonthlyCompletion)

	// Every task appears in exactly one of the two lists
	seen := make(map[uuid.UUID]int)
	for _, task := range dashboard.Pending {
		seen[task.ID]++
		assert.False(t, task.Completed)
	}
	for _, task := range dashboard.Completed {
		seen[task.ID]++
		assert.True(t, task.Completed)
	}
	for _, id := range taskIDs {
		assert.Equal(t, 1, seen[id])
	}

	// Calendar mirrors the completed list
	require.Len(t, dashboard.Calendar, 1)
	assert.Equal(t, "a", dashboard.Calendar[0].Title)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, dashboard.Calendar[0].Start)
}

func TestTaskServiceListEmpty(t *testing.T) {
	f := newTestFixture(t)

	dashboard, err := f.service.List(context.Background(), f.userID)
	require.NoError(t, err)

	assert.Empty(t, dashboard.Pending)
	assert.Empty(t, dashboard.Completed)
	assert.Empty(t, dashboard.Calendar)
	assert.Equal(t, 0.0, dashboard.DailyCompletion)
	assert.Equal(t, 0.0, dashboard.WeeklyCompletion)
	assert.Equal(t, 0.0, dashboard.MonthlyCompletion)
}

func TestTaskServiceListIsolatedPerUser(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, f.userID, "Mine", "")
	require.NoError(t, err)

	dashboard, err := f.service.List(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, dashboard.Pending)
	assert.Empty(t, dashboard.Completed)
}

func TestTaskServiceCompletedList(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	first, err := f.service.Create(ctx, f.userID, "First", "")
	require.NoError(t, err)
	_, err = f.service.Create(ctx, f.userID, "Second", "")
	require.NoError(t, err)

	_, err = f.service.Complete(ctx, f.userID, first.ID)
	require.NoError(t, err)

	completed, err := f.service.CompletedList(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "First", completed[0].Title)
}

func TestTaskServiceCompletionRate(t *testing.T) {
	now := time.Date(2025, time.May, 15, 12, 0, 0, 0, time.UTC)
	f := newTestFixture(t, WithTimeFunc(func() time.Time { return now }))
	ctx := context.Background()

	// One task inside today's window, completed; one created before the
	// window that must not count for "day".
	inWindow, err := f.service.Create(ctx, f.userID, "Today", "")
	require.NoError(t, err)
	inWindow.CreatedAt = now.Add(-time.Hour)
	require.NoError(t, f.tasks.Update(ctx, inWindow))

	old, err := f.service.Create(ctx, f.userID, "Last week", "")
	require.NoError(t, err)
	old.CreatedAt = now.AddDate(0, 0, -10)
	require.NoError(t, f.tasks.Update(ctx, old))

	_, err = f.service.Complete(ctx, f.userID, inWindow.ID)
	require.NoError(t, err)

	daily, err := f.service.CompletionRate(ctx, f.userID, domain.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 100.0, daily)

	monthly, err := f.service.CompletionRate(ctx, f.userID, domain.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, 50.0, monthly)
}

func TestTaskServiceCompletionRateInvalidPeriod(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.service.CompletionRate(context.Background(), f.userID, domain.Period("year"))
	assert.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestTaskServiceStoreFailure(t *testing.T) {
	f := newTestFixture(t)
	f.tasks.failWith = errors.New("connection reset")

	_, err := f.service.List(context.Background(), f.userID)
	assert.Error(t, err)

	var serviceErr *TaskServiceError
	assert.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "list_tasks", serviceErr.Operation)
}
