package jwt

import (
	"context"
	"strings"
	"testing"
	"time"

	libjwt "github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/apex/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticID string

func (s staticID) Generate() string { return string(s) }

var testSecret = []byte(strings.Repeat("k", 64))

func newTestHS512(t *testing.T, now time.Time) *HS512 {
	t.Helper()

	h, err := NewHS512(Config{
		Secret:    testSecret,
		Issuer:    "apex",
		Audiences: []string{"apex-web"},
		TTL:       15 * time.Minute,
		Clock:     clock.NewFixed(now),
		UUID:      staticID("jti-1"),
	})
	require.NoError(t, err)

	return h
}

func TestHS512_RoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	h := newTestHS512(t, now)

	token, err := h.Generate(42, "alice@example.com")
	require.NoError(t, err)

	claims, err := h.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.UserEmail)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "jti-1", claims.ID)
}

func TestHS512_Expired(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	token, err := newTestHS512(t, issued).Generate(1, "a@b.c")
	require.NoError(t, err)

	_, err = newTestHS512(t, time.Now()).Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestHS512_Rejects(t *testing.T) {
	now := time.Now()
	h := newTestHS512(t, now)

	t.Run("garbage", func(t *testing.T) {
		_, err := h.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		token, err := libjwt.NewWithClaims(libjwt.SigningMethodHS256, Claims{
			RegisteredClaims: libjwt.RegisteredClaims{
				Issuer:    "apex",
				Audience:  []string{"apex-web"},
				IssuedAt:  libjwt.NewNumericDate(now),
				ExpiresAt: libjwt.NewNumericDate(now.Add(time.Minute)),
			},
			UserID: 1,
		}).SignedString(testSecret)
		require.NoError(t, err)

		_, err = h.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewHS512(Config{
			Secret: testSecret, Issuer: "evil", Audiences: []string{"apex-web"},
			TTL: time.Minute, Clock: clock.NewFixed(now), UUID: staticID("x"),
		})
		require.NoError(t, err)

		token, err := other.Generate(1, "a@b.c")
		require.NoError(t, err)

		_, err = h.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewHS512_ShortKey(t *testing.T) {
	_, err := NewHS512(Config{Secret: []byte("short"), Clock: clock.New()})
	assert.ErrorIs(t, err, ErrSigningKeyTooShort)
}

func TestAuthContext(t *testing.T) {
	assert.Nil(t, GetAuth(context.Background()))

	ctx := SetAuth(context.Background(), Claims{UserID: 7})
	require.NotNil(t, GetAuth(ctx))
	assert.Equal(t, int64(7), GetAuth(ctx).UserID)
}
