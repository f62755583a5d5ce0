package memory

import (
	"context"
	"sync"
	"time"
)

// ReminderDedup is the process-local reminder ledger used when Redis is not
// configured. Entries are never evicted.
type ReminderDedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewReminderDedup() *ReminderDedup {
	return &ReminderDedup{seen: make(map[string]struct{})}
}

func (d *ReminderDedup) TryMark(_ context.Context, taskID string, dueDate time.Time) (bool, error) {
	key := dedupKey(taskID, dueDate)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = struct{}{}
	return true, nil
}

func (d *ReminderDedup) Release(_ context.Context, taskID string, dueDate time.Time) error {
	d.mu.Lock()
	delete(d.seen, dedupKey(taskID, dueDate))
	d.mu.Unlock()
	return nil
}

func dedupKey(taskID string, dueDate time.Time) string {
	return taskID + "|" + dueDate.UTC().Format(time.RFC3339)
}
