package ports

import (
	"context"
	"time"
)

// NotificationSender delivers a rendered message to a destination address.
// Callers treat it as fire-and-forget.
type NotificationSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ReminderDedup records which due-date reminders were already sent.
type ReminderDedup interface {
	// TryMark claims the reminder slot for (taskID, dueDate). It reports
	// false when the slot was already claimed.
	TryMark(ctx context.Context, taskID string, dueDate time.Time) (bool, error)
	// Release gives back a slot claimed by TryMark so a later sweep retries it.
	Release(ctx context.Context, taskID string, dueDate time.Time) error
}
