package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	reminderKeyPrefix  = "reminder"
	defaultReminderTTL = 7 * 24 * time.Hour
)

// ReminderDedup claims reminder slots with SET NX so that only one sweep, on
// any instance, sends a given reminder.
// Key format: reminder:<task_id>:<due_unix>
type ReminderDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReminderDedup wraps client. Claimed slots expire after ttl, or after a
// week when ttl is not positive.
func NewReminderDedup(client *redis.Client, ttl time.Duration) *ReminderDedup {
	if ttl <= 0 {
		ttl = defaultReminderTTL
	}
	return &ReminderDedup{client: client, ttl: ttl}
}

// TryMark reports true when this call claimed the slot.
func (d *ReminderDedup) TryMark(ctx context.Context, taskID string, dueDate time.Time) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(taskID, dueDate), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reminder dedup: %w", err)
	}
	return ok, nil
}

// Release deletes the claim. Deleting a missing key is not an error.
func (d *ReminderDedup) Release(ctx context.Context, taskID string, dueDate time.Time) error {
	if err := d.client.Del(ctx, d.key(taskID, dueDate)).Err(); err != nil {
		return fmt.Errorf("reminder dedup release: %w", err)
	}
	return nil
}

func (d *ReminderDedup) key(taskID string, dueDate time.Time) string {
	return fmt.Sprintf("%s:%s:%d", reminderKeyPrefix, taskID, dueDate.Unix())
}
