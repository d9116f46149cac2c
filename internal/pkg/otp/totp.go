package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // RFC 6238 mandates SHA-1 for authenticator interoperability.
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
)

// ErrRandomnessUnavailable is returned when the system CSPRNG cannot be read.
// It is not retryable within the same process state.
var ErrRandomnessUnavailable = errors.New("otp: randomness unavailable")

// GenerateSecret draws size random bytes from crypto/rand and returns them
// Base32 encoded without padding. A non-positive size uses DefaultSecretSize.
func GenerateSecret(size int) (string, error) {
	return generateSecret(rand.Reader, size)
}

func generateSecret(r io.Reader, size int) (string, error) {
	if size <= 0 {
		size = DefaultSecretSize
	}

	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRandomnessUnavailable, err)
	}

	return EncodeBase32(raw), nil
}

// ComputeCode derives the code for secret at atMs (Unix milliseconds).
//
// stepSeconds and digits are trusted; zero values fall back to the defaults.
// Timestamps before the epoch map to counter 0.
func ComputeCode(secret string, atMs int64, stepSeconds uint, digits int) string {
	if stepSeconds == 0 {
		stepSeconds = DefaultPeriod
	}
	if digits <= 0 || digits > maxDigits {
		digits = DefaultDigits
	}

	return hotp(DecodeBase32(secret), counterAt(atMs, stepSeconds), digits)
}

// VerifyCode checks submitted against secret at the current wall-clock time
// using the default step and digit count. A windowSteps of zero or less
// accepts the current step only.
func VerifyCode(secret, submitted string, windowSteps int) bool {
	cfg := DefaultConfig()
	cfg.Window = windowSteps
	if windowSteps <= 0 {
		cfg.Window = CurrentStepOnly
	}

	return cfg.Verify(secret, submitted, time.Now())
}

// GenerateSecret provisions a secret of c.SecretSize bytes.
func (c Config) GenerateSecret() (string, error) {
	return GenerateSecret(c.normalize().SecretSize)
}

// Code derives the code for secret at the given time.
func (c Config) Code(secret string, at time.Time) string {
	c = c.normalize()

	return ComputeCode(secret, at.UnixMilli(), c.Period, c.Digits)
}

// Verify reports whether submitted matches the code of any step in
// [-Window, +Window] around at. Whitespace in submitted is ignored; anything
// other than exactly Digits decimal digits is rejected before hashing.
//
// Every candidate is computed and compared in constant time, so the result
// does not leak which step matched.
func (c Config) Verify(secret, submitted string, at time.Time) bool {
	c = c.normalize()

	code, ok := normalizeCode(submitted, c.Digits)
	if !ok {
		return false
	}

	key := DecodeBase32(secret)
	atMs := at.UnixMilli()
	stepMs := int64(c.Period) * 1000

	window := c.window()
	matched := 0
	for w := -window; w <= window; w++ {
		candidate := hotp(key, counterAt(atMs+int64(w)*stepMs, c.Period), c.Digits)
		matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
	}

	return matched == 1
}

func normalizeCode(submitted string, digits int) (string, bool) {
	code := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, submitted)

	if len(code) != digits {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", false
		}
	}

	return code, true
}

func counterAt(atMs int64, stepSeconds uint) uint64 {
	if atMs < 0 {
		return 0
	}

	return uint64(atMs) / 1000 / uint64(stepSeconds)
}

func hotp(key []byte, counter uint64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := uint64(binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff)

	mod := uint64(1)
	for range digits {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, value%mod)
}
