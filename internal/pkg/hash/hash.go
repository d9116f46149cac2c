package hash

// Hash computes and verifies hashes of short strings.
type Hash interface {
	// Hash returns the hash of str.
	Hash(str string) ([]byte, error)
	// Verify reports whether hashed is the hash of str.
	Verify(hashed, str string) bool
}
