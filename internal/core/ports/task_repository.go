package ports

import (
	"context"

	"github.com/darkarnold/task-manager-api/internal/core/domain"
)

// TaskRepository persists tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// FindByID returns domain.ErrTaskNotFound when no task has id.
	FindByID(ctx context.Context, id string) (*domain.Task, error)
	// Find returns one page of tasks matching q.Filter, plus the total number
	// of matching tasks. The filter, including VisibleTo, must be applied in
	// the query itself so the count and the page agree.
	Find(ctx context.Context, q domain.TaskQuery) ([]*domain.Task, int64, error)
	// Save replaces the stored task with the same ID.
	Save(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
}
