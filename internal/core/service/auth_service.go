package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/darkarnold/task-manager-api/internal/api/metrics"
	"github.com/darkarnold/task-manager-api/internal/core/domain"
	"github.com/darkarnold/task-manager-api/internal/core/ports"
)

// AuthService implements registration, login and password change.
type AuthService struct {
	users    ports.UserRepository
	codec    *TokenCodec
	hasher   *PasswordHasher
	clock    ports.Clock
	tokenTTL time.Duration
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	codec *TokenCodec,
	hasher *PasswordHasher,
	clock ports.Clock,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:    users,
		codec:    codec,
		hasher:   hasher,
		clock:    clock,
		tokenTTL: tokenTTL,
		log:      log,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	switch {
	case name == "":
		return nil, domain.FieldError(domain.ErrMissingRequiredField, "name")
	case email == "":
		return nil, domain.FieldError(domain.ErrMissingRequiredField, "email")
	case in.Password == "":
		return nil, domain.FieldError(domain.ErrMissingRequiredField, "password")
	}

	role := domain.RoleUser
	if in.Role != "" {
		role = domain.Role(in.Role)
	}
	if !role.Valid() {
		return nil, domain.FieldError(domain.ErrInvalidField, "role")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	created, err := s.users.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}

// Login returns a signed bearer token. An unknown email and a wrong password
// fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.AuthFailuresTotal.WithLabelValues("credentials").Inc()
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Matches(user.PasswordHash, password) {
		metrics.AuthFailuresTotal.WithLabelValues("credentials").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.ID, user.Role, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current
// one. Any pending reset token is dropped along with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, p domain.Principal, current, next string) error {
	if current == "" {
		return domain.FieldError(domain.ErrMissingRequiredField, "currentPassword")
	}
	if next == "" {
		return domain.FieldError(domain.ErrMissingRequiredField, "newPassword")
	}

	user, err := s.Me(ctx, p)
	if err != nil {
		return err
	}
	if !s.hasher.Matches(user.PasswordHash, current) {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to clear pending reset token")
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}
