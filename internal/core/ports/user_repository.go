package ports

import (
	"context"
	"time"

	"github.com/darkarnold/task-manager-api/internal/core/domain"
)

// UserRepository persists users. Reset-token fields are owned by
// StoreResetToken and ConsumeResetToken; Save never writes them.
type UserRepository interface {
	// Create inserts a new user and returns it with its assigned ID.
	// A duplicate email yields domain.ErrEmailAlreadyRegistered.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmail expects an already normalized address.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Save persists name, email, role and password hash.
	Save(ctx context.Context, user *domain.User) error

	// StoreResetToken unconditionally overwrites the user's pending reset
	// token, so the newest request supersedes any older one.
	StoreResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// ConsumeResetToken atomically finds the user whose reset hash equals
	// tokenHash with an expiry after now, clears both reset fields and sets
	// passwordHash in the same operation. It returns
	// domain.ErrInvalidOrExpiredResetToken when no such user exists, so at
	// most one concurrent caller can win.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*domain.User, error)
	// ClearResetToken drops any pending reset token for userID.
	ClearResetToken(ctx context.Context, userID string) error
}
