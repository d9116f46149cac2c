package entity

import (
	"time"

	"github.com/shandysiswandi/apex/internal/pkg/valueobject"
)

// EventKind names a security-relevant action on an account.
type EventKind string

const (
	EventMFASetupStarted      EventKind = "mfa_setup_started"
	EventMFAEnabled           EventKind = "mfa_enabled"
	EventMFADisabled          EventKind = "mfa_disabled"
	EventMFAChallengePassed   EventKind = "mfa_challenge_passed"
	EventMFAChallengeFailed   EventKind = "mfa_challenge_failed"
	EventTrustedDeviceAdded   EventKind = "device_trusted"
	EventTrustedDeviceRemoved EventKind = "device_removed"
)

// IsValid reports whether k is a known kind.
func (k EventKind) IsValid() bool {
	switch k {
	case EventMFASetupStarted, EventMFAEnabled, EventMFADisabled,
		EventMFAChallengePassed, EventMFAChallengeFailed,
		EventTrustedDeviceAdded, EventTrustedDeviceRemoved:
		return true
	default:
		return false
	}
}

// AuditEvent is one row of the account security log.
type AuditEvent struct {
	ID            int64
	UserID        int64
	Kind          EventKind
	CorrelationID string
	Payload       valueobject.JSONMap
	OccurredAt    time.Time
}
