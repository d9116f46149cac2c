package mfa

import (
	"crypto/sha256"
	"strconv"
)

// Purpose separates ciphertexts of different kinds for the same user.
type Purpose string

// PurposeTOTPSecret scopes encryption to TOTP shared secrets.
const PurposeTOTPSecret Purpose = "totp_secret"

// Scope identifies who a ciphertext belongs to and what it holds.
type Scope struct {
	UserID  int64
	Purpose Purpose
}

// aad returns a fixed-length digest of the labelled scope fields.
func (s Scope) aad() []byte {
	canonical := "uid=" + strconv.FormatInt(s.UserID, 10) + "\npurpose=" + string(s.Purpose) + "\n"
	sum := sha256.Sum256([]byte(canonical))

	return sum[:]
}
