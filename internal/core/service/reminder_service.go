package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/darkarnold/task-manager-api/internal/api/metrics"
	"github.com/darkarnold/task-manager-api/internal/core/domain"
	"github.com/darkarnold/task-manager-api/internal/core/ports"
)

const reminderSubject = "Task due soon"

var reminderMailTemplate = template.Must(template.New("reminder").Parse(
	`<p>Hello {{.Name}},</p>
<p>The task <strong>{{.Title}}</strong> ({{.Priority}} priority) is due on {{.Due}}.</p>
`))

// ReminderService emails assignees about open tasks approaching their due date.
type ReminderService struct {
	tasks  ports.TaskRepository
	users  ports.UserRepository
	dedup  ports.ReminderDedup
	sender ports.NotificationSender
	clock  ports.Clock
	window time.Duration
	log    zerolog.Logger
}

func NewReminderService(
	tasks ports.TaskRepository,
	users ports.UserRepository,
	dedup ports.ReminderDedup,
	sender ports.NotificationSender,
	clock ports.Clock,
	window time.Duration,
	log zerolog.Logger,
) *ReminderService {
	return &ReminderService{
		tasks:  tasks,
		users:  users,
		dedup:  dedup,
		sender: sender,
		clock:  clock,
		window: window,
		log:    log,
	}
}

// SendDueReminders sends one reminder per open task due within the window.
// A task is reminded at most once per due date; changing the due date makes
// it eligible again.
func (s *ReminderService) SendDueReminders(ctx context.Context) (int, error) {
	q := domain.TaskQuery{
		Filter: domain.TaskFilter{
			StatusNot: domain.StatusDone,
			DueBefore: s.clock.Now().Add(s.window),
		},
		Page:     1,
		PageSize: domain.MaxPageSize,
		SortKey:  domain.SortByDueDate,
		SortDir:  domain.SortAsc,
	}

	sent := 0
	for {
		items, total, err := s.tasks.Find(ctx, q)
		if err != nil {
			return sent, fmt.Errorf("find due tasks: %w", err)
		}
		for _, task := range items {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			if s.remind(ctx, task) {
				sent++
			}
		}
		if len(items) == 0 || int64(q.Page*q.PageSize) >= total {
			break
		}
		q.Page++
	}

	if sent > 0 {
		s.log.Info().Int("sent", sent).Msg("due reminders sent")
	}
	return sent, nil
}

// remind claims the slot first so concurrent sweeps send once. A claim is
// released again when the assignee cannot be loaded or the send fails, so
// the next sweep retries. A deleted assignee keeps the claim.
func (s *ReminderService) remind(ctx context.Context, task *domain.Task) bool {
	claimed, err := s.dedup.TryMark(ctx, task.ID, task.DueDate)
	if err != nil {
		s.log.Warn().Err(err).Str("task_id", task.ID).Msg("reminder dedup failed, sending anyway")
	} else if !claimed {
		return false
	}

	user, err := s.users.FindByID(ctx, task.AssignedTo)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn().Err(err).Str("task_id", task.ID).Msg("failed to load assignee")
			s.release(ctx, task, claimed)
		}
		return false
	}

	var body strings.Builder
	err = reminderMailTemplate.Execute(&body, struct {
		Name, Title, Priority, Due string
	}{
		Name:     user.Name,
		Title:    task.Title,
		Priority: string(task.Priority),
		Due:      task.DueDate.Format(time.RFC1123),
	})
	if err != nil {
		s.log.Error().Err(err).Str("task_id", task.ID).Msg("failed to render reminder")
		s.release(ctx, task, claimed)
		return false
	}

	if err := s.sender.Send(ctx, user.Email, reminderSubject, body.String()); err != nil {
		s.log.Error().Err(err).Str("task_id", task.ID).Msg("failed to send reminder")
		s.release(ctx, task, claimed)
		return false
	}
	metrics.RemindersSentTotal.Inc()
	return true
}

func (s *ReminderService) release(ctx context.Context, task *domain.Task, claimed bool) {
	if !claimed {
		return
	}
	// Runs during shutdown too, when ctx is already cancelled.
	if err := s.dedup.Release(context.WithoutCancel(ctx), task.ID, task.DueDate); err != nil {
		s.log.Warn().Err(err).Str("task_id", task.ID).Msg("failed to release reminder claim")
	}
}

// Run sweeps once immediately, then every interval until ctx is cancelled.
func (s *ReminderService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReminderService) sweep(ctx context.Context) {
	if _, err := s.SendDueReminders(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Msg("reminder sweep failed")
	}
}
