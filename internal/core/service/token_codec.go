package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darkarnold/task-manager-api/internal/core/domain"
	"github.com/darkarnold/task-manager-api/internal/core/ports"
)

// tokenClaims is the bearer token payload: the subject carries the user ID.
type tokenClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 bearer tokens. It holds no state
// beyond the signing secret and clock, so one instance is safe for any
// number of concurrent callers.
type TokenCodec struct {
	secret []byte
	clock  ports.Clock
	parser *jwt.Parser
}

func NewTokenCodec(secret string, clock ports.Clock) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		clock:  clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clock.Now),
		),
	}
}

// Issue signs a token for principalID with the given role, valid for ttl.
func (c *TokenCodec) Issue(principalID string, role domain.Role, ttl time.Duration) (string, error) {
	now := c.clock.Now()
	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks structure, signature and expiry, in that order, and returns
// the embedded principal. A token whose expiry is at or before the current
// time is rejected. The returned errors all wrap domain.ErrUnauthenticated.
func (c *TokenCodec) Verify(token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, domain.ErrMissingToken
	}

	claims := &tokenClaims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return domain.Principal{}, classifyTokenError(err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.Role == "" {
		return domain.Principal{}, domain.ErrMalformedToken
	}

	return domain.Principal{ID: claims.Subject, Role: claims.Role}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	default:
		return domain.ErrMalformedToken
	}
}
