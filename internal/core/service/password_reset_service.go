package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
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

const (
	// ResetTokenTTL is how long an issued reset link stays usable.
	ResetTokenTTL = 10 * time.Minute

	resetTokenBytes = 32
	resetSubject    = "Password reset request"
)

var resetMailTemplate = template.Must(template.New("reset").Parse(
	`<p>Hello {{.Name}},</p>
<p>We received a request to reset the password for your account.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>This link expires in {{.Minutes}} minutes. If you did not ask for a reset, you can ignore this email.</p>
`))

// PasswordResetService runs the reset-token lifecycle: a user has at most one
// pending token, only its digest is stored, and a token can be consumed once.
type PasswordResetService struct {
	users       ports.UserRepository
	sender      ports.NotificationSender
	hasher      *PasswordHasher
	clock       ports.Clock
	frontendURL string
	log         zerolog.Logger
}

func NewPasswordResetService(
	users ports.UserRepository,
	sender ports.NotificationSender,
	hasher *PasswordHasher,
	clock ports.Clock,
	frontendURL string,
	log zerolog.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		users:       users,
		sender:      sender,
		hasher:      hasher,
		clock:       clock,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

// Initiate issues a fresh reset token for the account behind email and mails
// the link. It returns nil whether or not the account exists. Only store
// failures surface as errors.
func (s *PasswordResetService) Initiate(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.FieldError(domain.ErrMissingRequiredField, "email")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.PasswordResetTotal.WithLabelValues("initiate", "unknown_email").Inc()
			s.log.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		metrics.PasswordResetTotal.WithLabelValues("initiate", "error").Inc()
		return fmt.Errorf("initiate reset: %w", err)
	}

	token, err := newResetToken()
	if err != nil {
		return fmt.Errorf("initiate reset: %w", err)
	}
	expiresAt := s.clock.Now().Add(ResetTokenTTL)
	if err := s.users.StoreResetToken(ctx, user.ID, digestResetToken(token), expiresAt); err != nil {
		metrics.PasswordResetTotal.WithLabelValues("initiate", "error").Inc()
		return fmt.Errorf("initiate reset: %w", err)
	}

	body, err := s.renderResetMail(user.Name, token)
	if err != nil {
		return fmt.Errorf("initiate reset: %w", err)
	}
	if err := s.sender.Send(ctx, user.Email, resetSubject, body); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send password reset email")
	}

	metrics.PasswordResetTotal.WithLabelValues("initiate", "issued").Inc()
	s.log.Info().Str("user_id", user.ID).Time("expires_at", expiresAt).Msg("password reset issued")
	return nil
}

// Reset sets newPassword for the user holding token. Wrong, expired and
// already used tokens all yield domain.ErrInvalidOrExpiredResetToken.
func (s *PasswordResetService) Reset(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return domain.FieldError(domain.ErrMissingRequiredField, "newPassword")
	}
	if token == "" {
		metrics.PasswordResetTotal.WithLabelValues("reset", "invalid").Inc()
		return domain.ErrInvalidOrExpiredResetToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	user, err := s.users.ConsumeResetToken(ctx, digestResetToken(token), hash, s.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredResetToken) {
			metrics.PasswordResetTotal.WithLabelValues("reset", "invalid").Inc()
			return err
		}
		metrics.PasswordResetTotal.WithLabelValues("reset", "error").Inc()
		return fmt.Errorf("reset password: %w", err)
	}

	metrics.PasswordResetTotal.WithLabelValues("reset", "ok").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("password reset completed")
	return nil
}

// ResetLink builds the frontend URL that carries token.
func (s *PasswordResetService) ResetLink(token string) string {
	return s.frontendURL + "/reset-password/" + token
}

func (s *PasswordResetService) renderResetMail(name, token string) (string, error) {
	var b strings.Builder
	err := resetMailTemplate.Execute(&b, struct {
		Name    string
		Link    string
		Minutes int
	}{
		Name:    name,
		Link:    s.ResetLink(token),
		Minutes: int(ResetTokenTTL / time.Minute),
	})
	if err != nil {
		return "", fmt.Errorf("render reset mail: %w", err)
	}
	return b.String(), nil
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// digestResetToken is the only form of a reset token that is ever stored.
func digestResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
