package otp

import (
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrInvalidSecret is returned when a secret decodes to no key bytes.
var ErrInvalidSecret = errors.New("otp: secret has no valid base32 symbols")

// OTP defines the contract for TOTP operations consumed by account flows.
type OTP interface {
	// Generate creates a secret and provisioning URI for an account name.
	Generate(accountName string) (secret string, uri string, err error)
	// Validate checks whether a code is valid at the given time.
	Validate(code, secret string, at time.Time) bool
	// GenerateCode creates a TOTP code for the given secret and time.
	GenerateCode(secret string, at time.Time) (string, error)
}

// TOTP implements OTP on top of the engine functions in this package.
type TOTP struct {
	cfg Config
}

// NewTOTP constructs a TOTP bound to cfg. Missing fields use the defaults.
func NewTOTP(cfg Config) *TOTP {
	return &TOTP{cfg: cfg.normalize()}
}

// Config returns the effective parameters.
func (o *TOTP) Config() Config {
	return o.cfg
}

// Generate provisions a new secret and builds the otpauth:// URI that
// authenticator apps scan from a QR code.
func (o *TOTP) Generate(accountName string) (secret string, uri string, err error) {
	secret, err = o.cfg.GenerateSecret()
	if err != nil {
		return "", "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      o.cfg.Issuer,
		AccountName: accountName,
		Period:      o.cfg.Period,
		Secret:      DecodeBase32(secret),
		Digits:      otp.Digits(o.cfg.Digits),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}

	return secret, key.URL(), nil
}

// Validate checks whether a code is valid at the given time.
func (o *TOTP) Validate(code, secret string, at time.Time) bool {
	return o.cfg.Verify(secret, code, at)
}

// GenerateCode creates a TOTP code for the given secret and time.
func (o *TOTP) GenerateCode(secret string, at time.Time) (string, error) {
	if len(DecodeBase32(secret)) == 0 {
		return "", ErrInvalidSecret
	}

	return o.cfg.Code(secret, at), nil
}
