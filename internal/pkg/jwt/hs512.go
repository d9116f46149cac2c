package jwt

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// HS512 signs and verifies tokens with a shared HMAC-SHA512 key.
type HS512 struct {
	cfg    Config
	parser *jwt.Parser
}

// NewHS512 validates cfg and returns an HS512 implementation.
func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < 64 {
		return nil, ErrSigningKeyTooShort
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Clock.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audiences) > 0 {
		opts = append(opts, jwt.WithAudience(cfg.Audiences...))
	}

	return &HS512{cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

// Generate returns a signed token for the user valid for cfg.TTL.
func (h *HS512) Generate(userID int64, email string) (string, error) {
	now := h.cfg.Clock.Now()

	return jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        h.cfg.UUID.Generate(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    h.cfg.Issuer,
			Audience:  h.cfg.Audiences,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.cfg.TTL)),
		},
		UserID:    userID,
		UserEmail: email,
	}).SignedString(h.cfg.Secret)
}

// Verify parses token and returns its claims.
func (h *HS512) Verify(token string) (Claims, error) {
	var claims Claims

	parsed, err := h.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return h.cfg.Secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Claims{}, ErrTokenExpired
	}
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
