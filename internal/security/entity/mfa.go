package entity

import "time"

// UserMFA is a user's TOTP enrolment. Secret holds the AES-GCM sealed Base32
// secret; it is empty when setup has never run or MFA was disabled.
type UserMFA struct {
	UserID     int64
	Secret     []byte
	KeyVersion int16
	Enabled    bool
	UpdatedAt  time.Time
}

// MFAActivation turns on a pending enrolment. Secret is the sealed secret the
// code was checked against; activation fails when setup replaced it meanwhile.
type MFAActivation struct {
	UserID int64
	Secret []byte
	Device *TrustedDevice
	// RelabelDevice overwrites the label of a device that is already trusted.
	RelabelDevice bool
}

// HasSecret reports whether a secret is on file.
func (m *UserMFA) HasSecret() bool {
	return m != nil && len(m.Secret) > 0
}

// IsEnabled reports whether sign-in must pass a TOTP challenge.
func (m *UserMFA) IsEnabled() bool {
	return m != nil && m.Enabled && m.HasSecret()
}
