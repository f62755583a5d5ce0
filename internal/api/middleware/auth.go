package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/darkarnold/task-manager-api/internal/api/metrics"
	"github.com/darkarnold/task-manager-api/internal/core/domain"
	"github.com/darkarnold/task-manager-api/internal/core/ports"
)

// PrincipalKey is the echo.Context key holding the authenticated domain.Principal.
const PrincipalKey = "principal"

// Auth verifies the bearer token and stores the resulting principal in the
// context. Every failure is returned as a domain.ErrUnauthenticated variant;
// the error handler renders them all identically.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err == nil {
				var p domain.Principal
				p, err = verifier.Verify(token)
				if err == nil {
					c.Set(PrincipalKey, p)
					return next(c)
				}
			}
			metrics.AuthFailuresTotal.WithLabelValues(failureReason(err)).Inc()
			return err
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", domain.ErrMalformedToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingToken
	}
	return token, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return "missing"
	case errors.Is(err, domain.ErrBadSignature):
		return "signature"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	default:
		return "malformed"
	}
}

// PrincipalFrom returns the principal set by Auth.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(domain.Principal)
	return p, ok && p.ID != ""
}
