package uid

import "github.com/google/uuid"

// UUID generates time-ordered RFC 9562 version 7 UUIDs.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUID v7, or a v4 if the clock sequence is exhausted.
func (*UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// IsUUID reports whether s parses as a UUID of any version.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}
