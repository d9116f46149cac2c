package entity

import "time"

// TrustedDevice is a browser that passed a challenge with "remember" set.
// DeviceHash is the keyed hash of the client device id, never the raw value.
type TrustedDevice struct {
	ID         int64
	UserID     int64
	DeviceHash string
	Label      string
	LastSeenAt time.Time
	CreatedAt  time.Time
}

// IsActive reports whether the device still skips the challenge at now.
// A zero ttl never expires.
func (d TrustedDevice) IsActive(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}

	return now.Sub(d.LastSeenAt) <= ttl
}
