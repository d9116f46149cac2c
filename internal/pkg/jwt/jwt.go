package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSigningKeyTooShort is returned when the HS512 key is under 64 bytes.
	ErrSigningKeyTooShort = errors.New("jwt: HS512 signing key must be at least 64 bytes")
	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("jwt: token has expired")
	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("jwt: invalid token")
)

// JWT generates and verifies session tokens.
type JWT interface {
	Generate(userID int64, email string) (string, error)
	Verify(token string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

// Config holds the inputs for NewHS512.
type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	Clock     clocker
	UUID      generator
}

// Claims are the registered claims plus the signed-in user.
type Claims struct {
	jwt.RegisteredClaims

	UserID    int64  `json:"user_id,string"`
	UserEmail string `json:"user_email"`
}

type authKey struct{}

// GetAuth returns the claims stored by SetAuth, or nil for anonymous requests.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(authKey{}).(Claims)
	if !ok {
		return nil
	}

	return &clm
}

// SetAuth stores verified claims in ctx.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, authKey{}, clm)
}
