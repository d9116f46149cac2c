package mfa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
)

// Ciphertext layout: uint16 format version | 12-byte nonce | sealed data + tag.
const (
	formatVersion uint16 = 1
	headerLen            = 2
	nonceLen             = 12
	keyLen               = 32
)

var (
	// ErrEncryptorNotConfigured is returned when no key provider is set.
	ErrEncryptorNotConfigured = errors.New("mfa: encryptor not configured")
	// ErrPlaintextEmpty is returned when there is nothing to encrypt.
	ErrPlaintextEmpty = errors.New("mfa: plaintext is empty")
	// ErrInvalidKeyLength is returned when the provider key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("mfa: key must be 32 bytes")
	// ErrCiphertextTooShort is returned for truncated input.
	ErrCiphertextTooShort = errors.New("mfa: ciphertext too short")
	// ErrUnsupportedVersion is returned for an unknown format version.
	ErrUnsupportedVersion = errors.New("mfa: unsupported ciphertext version")
	// ErrDecryptFailed hides whether the key, scope or data was wrong.
	ErrDecryptFailed = errors.New("mfa: decrypt failed")
	// ErrMissingStaticKey is returned when StaticKeyProvider has no key.
	ErrMissingStaticKey = errors.New("mfa: missing static key")
)

// AESGCMEncryptor implements Encryptor with AES-256-GCM.
type AESGCMEncryptor struct {
	keys KeyProvider
}

// NewAESGCMEncryptor returns an encryptor using keys.
func NewAESGCMEncryptor(keys KeyProvider) *AESGCMEncryptor {
	return &AESGCMEncryptor{keys: keys}
}

// Encrypt seals plaintext for scope.
func (e *AESGCMEncryptor) Encrypt(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrPlaintextEmpty
	}

	gcm, err := e.aead(scope)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerLen+nonceLen, headerLen+nonceLen+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint16(out, formatVersion)

	nonce := out[headerLen:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("mfa: nonce generation: %w", err)
	}

	return gcm.Seal(out, nonce, plaintext, scope.aad()), nil
}

// Decrypt opens ciphertext sealed for the same scope.
func (e *AESGCMEncryptor) Decrypt(ciphertext []byte, scope Scope) ([]byte, error) {
	if len(ciphertext) <= headerLen+nonceLen {
		return nil, ErrCiphertextTooShort
	}
	if v := binary.BigEndian.Uint16(ciphertext); v != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	gcm, err := e.aead(scope)
	if err != nil {
		return nil, err
	}

	nonce := ciphertext[headerLen : headerLen+nonceLen]
	plain, err := gcm.Open(nil, nonce, ciphertext[headerLen+nonceLen:], scope.aad())
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return plain, nil
}

func (e *AESGCMEncryptor) aead(scope Scope) (cipher.AEAD, error) {
	if e == nil || e.keys == nil {
		return nil, ErrEncryptorNotConfigured
	}

	key, err := e.keys.Key(scope)
	if err != nil {
		return nil, fmt.Errorf("mfa: key provider: %w", err)
	}
	if len(key) != keyLen {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

// StaticKeyProvider returns one key for every scope.
type StaticKeyProvider struct {
	KeyBytes []byte
}

// Key returns a copy of the static key.
func (p StaticKeyProvider) Key(Scope) ([]byte, error) {
	if len(p.KeyBytes) == 0 {
		return nil, ErrMissingStaticKey
	}

	return append([]byte(nil), p.KeyBytes...), nil
}
