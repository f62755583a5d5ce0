// Package memory provides process-local repositories. They back STORE=memory
// and tests; all state is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/darkarnold/task-manager-api/internal/core/domain"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.ResetTokenExpiry != nil {
		exp := *u.ResetTokenExpiry
		c.ResetTokenExpiry = &exp
	}
	return &c
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return nil, domain.ErrEmailAlreadyRegistered
	}
	stored := copyUser(user)
	stored.ID = uuid.NewString()
	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID
	return copyUser(stored), nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(r.byID[id]), nil
}

func (r *UserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.Email != stored.Email {
		if _, taken := r.byEmail[user.Email]; taken {
			return domain.ErrEmailAlreadyRegistered
		}
		delete(r.byEmail, stored.Email)
		r.byEmail[user.Email] = stored.ID
	}
	stored.Name = user.Name
	stored.Email = user.Email
	stored.Role = user.Role
	stored.PasswordHash = user.PasswordHash
	stored.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *UserRepository) StoreResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	stored.ResetTokenHash = tokenHash
	stored.ResetTokenExpiry = &expiresAt
	return nil
}

// ConsumeResetToken holds the write lock across match, clear and password set.
func (r *UserRepository) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.ResetTokenHash == tokenHash && u.HasPendingReset(now) {
			u.ClearReset()
			u.PasswordHash = passwordHash
			u.UpdatedAt = now
			return copyUser(u), nil
		}
	}
	return nil, domain.ErrInvalidOrExpiredResetToken
}

func (r *UserRepository) ClearResetToken(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[userID]; ok {
		u.ClearReset()
	}
	return nil
}
