// Package mfa encrypts TOTP shared secrets at rest.
//
// Secrets are sealed with AES-256-GCM and bound to the owning user and a
// purpose through the AEAD additional data, so a ciphertext copied to another
// user's row fails to open.
package mfa

// Encryptor seals and opens MFA material for a scope.
type Encryptor interface {
	Encrypt(plaintext []byte, scope Scope) ([]byte, error)
	Decrypt(ciphertext []byte, scope Scope) ([]byte, error)
}

// KeyProvider returns the 32-byte AES key for a scope.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}
