package service

import "context"

// Notifier is the capability for delivering a "task completed" message to a
// user. Implementations live in the platform layer; the task service treats
// delivery as best-effort and never fails an operation because of it.
type Notifier interface {
	// Send delivers a task-completion notification to the recipient address.
	// Implementations should bound how long delivery may take; the caller
	// logs and swallows any returned error.
	Send(ctx context.Context, recipient, title, description string) error
}
