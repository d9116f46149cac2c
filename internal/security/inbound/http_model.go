package inbound

import (
	"time"

	"github.com/shandysiswandi/apex/internal/pkg/valueobject"
)

type MFASetupResponse struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

type MFAConfirmRequest struct {
	Code        string `json:"code"`
	DeviceLabel string `json:"device_label"`
}

type MFAConfirmResponse struct {
	Enabled       bool `json:"enabled"`
	DeviceTrusted bool `json:"device_trusted"`
}

func (MFAConfirmResponse) Message() string { return "Two-step verification is on." }

type MFAChallengeRequest struct {
	Code     string `json:"code"`
	Remember bool   `json:"remember"`
}

type MFAChallengeResponse struct {
	Verified      bool `json:"verified"`
	DeviceTrusted bool `json:"device_trusted"`
}

type MFARequirementResponse struct {
	Required      bool `json:"required"`
	Enabled       bool `json:"enabled"`
	DeviceTrusted bool `json:"device_trusted"`
}

type TrustedDeviceResponse struct {
	ID         int64     `json:"id,string"`
	Label      string    `json:"label"`
	Current    bool      `json:"current"`
	Active     bool      `json:"active"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
}

type TrustedDevicesResponse struct {
	Devices []TrustedDeviceResponse `json:"devices"`
}

type MFAStatusResponse struct {
	Enabled      bool                    `json:"enabled"`
	PendingSetup bool                    `json:"pending_setup"`
	Devices      []TrustedDeviceResponse `json:"devices"`
}

type AuditEventResponse struct {
	ID            int64               `json:"id,string"`
	Kind          string              `json:"kind"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	Payload       valueobject.JSONMap `json:"payload"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

type AuditEventsResponse struct {
	Events []AuditEventResponse `json:"events"`
}
