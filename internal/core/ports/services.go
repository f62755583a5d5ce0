package ports

import (
	"context"
	"time"

	"github.com/darkarnold/task-manager-api/internal/core/domain"
)

// TokenVerifier turns a bearer token into the principal it was issued for.
type TokenVerifier interface {
	Verify(token string) (domain.Principal, error)
}

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Me(ctx context.Context, p domain.Principal) (*domain.User, error)
	ChangePassword(ctx context.Context, p domain.Principal, current, next string) error
}

// ListTasksResult is one page of tasks as seen by a principal.
type ListTasksResult struct {
	Items      []*domain.Task
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// TaskService is the task use-case surface; every operation is authorized
// against the calling principal.
type TaskService interface {
	List(ctx context.Context, p domain.Principal, q domain.TaskQuery) (*ListTasksResult, error)
	Create(ctx context.Context, p domain.Principal, draft domain.TaskDraft) (*domain.Task, error)
	Update(ctx context.Context, p domain.Principal, id string, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, p domain.Principal, id string) error
}

type PasswordResetService interface {
	// Initiate never reveals whether email belongs to an account.
	Initiate(ctx context.Context, email string) error
	Reset(ctx context.Context, token, newPassword string) error
}

// ReminderService sends due-date reminders for open tasks.
type ReminderService interface {
	SendDueReminders(ctx context.Context) (int, error)
	Run(ctx context.Context, interval time.Duration)
}
