package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/darkarnold/task-manager-api/internal/core/domain"
)

type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[string]*domain.Task)}
}

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return &c
}

func (r *TaskRepository) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyTask(task)
	stored.ID = uuid.NewString()
	r.tasks[stored.ID] = stored
	return copyTask(stored), nil
}

func (r *TaskRepository) FindByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return copyTask(t), nil
}

// Find filters before sorting and paginating, so the page and the total are
// drawn from the same set.
func (r *TaskRepository) Find(_ context.Context, q domain.TaskQuery) ([]*domain.Task, int64, error) {
	q = q.Normalize()

	r.mu.RLock()
	matched := make([]*domain.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if q.Filter.Matches(t) {
			matched = append(matched, copyTask(t))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		c := compareTasks(matched[i], matched[j], q.SortKey)
		if c == 0 {
			c = strings.Compare(matched[i].ID, matched[j].ID)
		}
		if q.SortDir == domain.SortAsc {
			return c < 0
		}
		return c > 0
	})

	total := int64(len(matched))
	start := min(q.Skip(), len(matched))
	end := min(start+q.PageSize, len(matched))
	return matched[start:end], total, nil
}

func compareTasks(a, b *domain.Task, key string) int {
	switch key {
	case domain.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case domain.SortByDueDate:
		return a.DueDate.Compare(b.DueDate)
	case domain.SortByPriority:
		return strings.Compare(string(a.Priority), string(b.Priority))
	case domain.SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case domain.SortByTitle:
		return strings.Compare(a.Title, b.Title)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r *TaskRepository) Save(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *TaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}
