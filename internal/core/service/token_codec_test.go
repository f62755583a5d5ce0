package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkarnold/task-manager-api/internal/core/domain"
)

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret", newFakeClock())

	token, err := codec.Issue("user-1", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	p, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{ID: "user-1", Role: domain.RoleAdmin}, p)
}

func TestTokenCodec_AlteredSignature(t *testing.T) {
	codec := NewTokenCodec("secret", newFakeClock())
	token, err := codec.Issue("user-1", domain.RoleUser, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	mid := len(sig) / 2
	if sig[mid] == 'A' {
		sig[mid] = 'B'
	} else {
		sig[mid] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Verify(tampered)
	assert.ErrorIs(t, err, domain.ErrBadSignature)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	clock := newFakeClock()
	token, err := NewTokenCodec("other", clock).Issue("user-1", domain.RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenCodec("secret", clock).Verify(token)
	assert.ErrorIs(t, err, domain.ErrBadSignature)
}

func TestTokenCodec_Expired(t *testing.T) {
	clock := newFakeClock()
	codec := NewTokenCodec("secret", clock)
	token, err := codec.Issue("user-1", domain.RoleUser, time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestTokenCodec_ExpiryAtNowIsRejected(t *testing.T) {
	clock := newFakeClock()
	codec := NewTokenCodec("secret", clock)
	token, err := codec.Issue("user-1", domain.RoleUser, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokenCodec_Malformed(t *testing.T) {
	codec := NewTokenCodec("secret", newFakeClock())

	for _, raw := range []string{"garbage", "a.b.c", "a.b"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, domain.ErrMalformedToken, raw)
	}
}

func TestTokenCodec_Missing(t *testing.T) {
	_, err := NewTokenCodec("secret", newFakeClock()).Verify("")
	assert.ErrorIs(t, err, domain.ErrMissingToken)
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	clock := newFakeClock()
	claims := tokenClaims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenCodec("secret", clock).Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestTokenCodec_RequiresExpiry(t *testing.T) {
	claims := tokenClaims{Role: domain.RoleUser, RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenCodec("secret", newFakeClock()).Verify(token)
	assert.ErrorIs(t, err, domain.ErrMalformedToken)
}
