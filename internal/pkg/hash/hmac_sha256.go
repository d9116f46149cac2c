package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrEmptyKey is returned when an HMAC key is not configured.
var ErrEmptyKey = errors.New("hash: hmac key is empty")

// HMACSHA256 hashes with HMAC-SHA256 and hex encodes the digest, so the
// output is deterministic and usable as a lookup key.
type HMACSHA256 struct {
	key []byte
}

// NewHMACSHA256 creates a hasher keyed with key.
func NewHMACSHA256(key string) *HMACSHA256 {
	return &HMACSHA256{key: []byte(key)}
}

// Hash returns the hex encoded HMAC of str.
func (h *HMACSHA256) Hash(str string) ([]byte, error) {
	if len(h.key) == 0 {
		return nil, ErrEmptyKey
	}

	return h.sum(str), nil
}

// Verify compares hashed against the HMAC of str in constant time.
func (h *HMACSHA256) Verify(hashed, str string) bool {
	if len(h.key) == 0 {
		return false
	}

	return hmac.Equal([]byte(hashed), h.sum(str))
}

func (h *HMACSHA256) sum(str string) []byte {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(str))

	return []byte(hex.EncodeToString(mac.Sum(nil)))
}
