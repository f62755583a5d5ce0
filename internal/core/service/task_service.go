package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/darkarnold/task-manager-api/internal/api/metrics"
	"github.com/darkarnold/task-manager-api/internal/core/domain"
	"github.com/darkarnold/task-manager-api/internal/core/policy"
	"github.com/darkarnold/task-manager-api/internal/core/ports"
)

// TaskService applies the access policy to every task operation before the
// repository is touched.
type TaskService struct {
	repo  ports.TaskRepository
	users ports.UserRepository
	clock ports.Clock
	log   zerolog.Logger
}

func NewTaskService(repo ports.TaskRepository, users ports.UserRepository, clock ports.Clock, log zerolog.Logger) *TaskService {
	return &TaskService{repo: repo, users: users, clock: clock, log: log}
}

// List returns the page of tasks p may see. The visibility restriction is
// part of the repository query, so Total counts only visible tasks.
func (s *TaskService) List(ctx context.Context, p domain.Principal, q domain.TaskQuery) (*ports.ListTasksResult, error) {
	q = q.Normalize()
	q.Filter = policy.VisibilityFilter(p, q.Filter)

	items, total, err := s.repo.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	}

	return &ports.ListTasksResult{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		Limit:      q.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Create stores a new task with p as its creator of record.
func (s *TaskService) Create(ctx context.Context, p domain.Principal, draft domain.TaskDraft) (*domain.Task, error) {
	if !policy.CanCreate(p) {
		return nil, domain.ErrForbidden
	}

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, domain.FieldError(domain.ErrMissingRequiredField, "title")
	}
	if draft.AssignedTo == "" {
		return nil, domain.FieldError(domain.ErrMissingRequiredField, "assignedTo")
	}
	if draft.DueDate.IsZero() {
		return nil, domain.FieldError(domain.ErrMissingRequiredField, "dueDate")
	}

	status := draft.Status
	if status == "" {
		status = domain.StatusCreated
	}
	if !status.Valid() {
		return nil, domain.FieldError(domain.ErrInvalidField, "status")
	}
	priority := draft.Priority
	if priority == "" {
		priority = domain.PriorityLow
	}
	if !priority.Valid() {
		return nil, domain.FieldError(domain.ErrInvalidField, "priority")
	}

	now := s.clock.Now()
	if err := domain.ValidateDueDate(draft.DueDate, now); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, draft.AssignedTo); err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:       title,
		Description: draft.Description,
		AssignedBy:  p.ID,
		AssignedTo:  draft.AssignedTo,
		Status:      status,
		Priority:    priority,
		DueDate:     draft.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	task.SyncCompletion(now)

	created, err := s.repo.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	metrics.TasksCreatedTotal.WithLabelValues(string(created.Priority)).Inc()
	s.log.Info().
		Str("task_id", created.ID).
		Str("assigned_by", created.AssignedBy).
		Str("assigned_to", created.AssignedTo).
		Msg("task created")
	return created, nil
}

// Update applies patch to the task identified by id if p may update it.
// CompletedAt is recomputed from the resulting status.
func (s *TaskService) Update(ctx context.Context, p domain.Principal, id string, patch domain.TaskPatch) (*domain.Task, error) {
	task, err := s.load(ctx, "update", id)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdate(p, task) {
		metrics.TaskMutationsTotal.WithLabelValues("update", "forbidden").Inc()
		return nil, domain.ErrForbidden
	}
	if patch.AssignedTo != nil && *patch.AssignedTo != "" && *patch.AssignedTo != task.AssignedTo {
		if err := s.checkAssignee(ctx, *patch.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := patch.Apply(task); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	task.SyncCompletion(now)
	task.UpdatedAt = now

	if err := s.repo.Save(ctx, task); err != nil {
		metrics.TaskMutationsTotal.WithLabelValues("update", "error").Inc()
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	metrics.TaskMutationsTotal.WithLabelValues("update", "ok").Inc()
	s.log.Info().Str("task_id", task.ID).Str("principal", p.ID).Str("status", string(task.Status)).Msg("task updated")
	return task, nil
}

// Delete removes the task identified by id if p may delete it.
func (s *TaskService) Delete(ctx context.Context, p domain.Principal, id string) error {
	task, err := s.load(ctx, "delete", id)
	if err != nil {
		return err
	}
	if !policy.CanDelete(p, task) {
		metrics.TaskMutationsTotal.WithLabelValues("delete", "forbidden").Inc()
		return domain.ErrForbidden
	}

	if err := s.repo.Delete(ctx, task.ID); err != nil {
		metrics.TaskMutationsTotal.WithLabelValues("delete", "error").Inc()
		if errors.Is(err, domain.ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("delete task: %w", err)
	}

	metrics.TaskMutationsTotal.WithLabelValues("delete", "ok").Inc()
	s.log.Info().Str("task_id", task.ID).Str("principal", p.ID).Msg("task deleted")
	return nil
}

// checkAssignee rejects an assignedTo that does not name a registered user.
func (s *TaskService) checkAssignee(ctx context.Context, id string) error {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.FieldError(domain.ErrInvalidField, "assignedTo")
		}
		return fmt.Errorf("load assignee: %w", err)
	}
	return nil
}

func (s *TaskService) load(ctx context.Context, op, id string) (*domain.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			metrics.TaskMutationsTotal.WithLabelValues(op, "not_found").Inc()
			return nil, err
		}
		metrics.TaskMutationsTotal.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%s task: %w", op, err)
	}
	return task, nil
}
