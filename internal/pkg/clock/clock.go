package clock

import "time"

// Clocker abstracts time so callers can replace real time in tests.
type Clocker interface {
	Now() time.Time
}

// TimeClocker reads the system clock.
type TimeClocker struct{}

// New returns a TimeClocker.
func New() *TimeClocker {
	return &TimeClocker{}
}

// Now returns the current system time.
func (*TimeClocker) Now() time.Time {
	return time.Now()
}

// FixedClocker always reports the same instant.
type FixedClocker struct {
	at time.Time
}

// NewFixed returns a clock frozen at at.
func NewFixed(at time.Time) *FixedClocker {
	return &FixedClocker{at: at}
}

// Now returns the frozen instant.
func (f *FixedClocker) Now() time.Time {
	return f.at
}
