package inbound

import (
	"strconv"

	"github.com/samber/lo"
	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/pkg/router"
	"github.com/shandysiswandi/apex/internal/security/entity"
	"github.com/shandysiswandi/apex/internal/security/usecase"
)

const headerIdempotencyKey = "Idempotency-Key"

type HTTPEndpoint struct {
	uc uc
}

// MFASetup starts enrolment and returns the secret with its otpauth URI.
// Route: POST /api/v1/security/mfa/setup
func (h *HTTPEndpoint) MFASetup(r *router.Request) (any, error) {
	out, err := h.uc.MFASetup(r.Context(), usecase.MFASetupInput{
		IdempotencyKey: r.GetHeader(headerIdempotencyKey),
	})
	if err != nil {
		return nil, err
	}

	return MFASetupResponse{Secret: out.Secret, URI: out.URI}, nil
}

// MFAConfirm enables MFA with the first code from the authenticator app.
// Route: POST /api/v1/security/mfa/confirm
func (h *HTTPEndpoint) MFAConfirm(r *router.Request) (any, error) {
	var req MFAConfirmRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.MFAConfirm(r.Context(), usecase.MFAConfirmInput{
		Code:        req.Code,
		DeviceLabel: req.DeviceLabel,
	})
	if err != nil {
		return nil, err
	}

	return MFAConfirmResponse{Enabled: true, DeviceTrusted: out.DeviceTrusted}, nil
}

// MFAChallenge verifies a sign-in code.
// Route: POST /api/v1/security/mfa/challenge
func (h *HTTPEndpoint) MFAChallenge(r *router.Request) (any, error) {
	var req MFAChallengeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.MFAChallenge(r.Context(), usecase.MFAChallengeInput{
		Code:     req.Code,
		Remember: req.Remember,
	})
	if err != nil {
		return nil, err
	}

	return MFAChallengeResponse{Verified: out.Verified, DeviceTrusted: out.DeviceTrusted}, nil
}

// Route: GET /api/v1/security/mfa/requirement
func (h *HTTPEndpoint) MFARequirement(r *router.Request) (any, error) {
	out, err := h.uc.MFARequirement(r.Context())
	if err != nil {
		return nil, err
	}

	return MFARequirementResponse{
		Required:      out.Required,
		Enabled:       out.Enabled,
		DeviceTrusted: out.DeviceTrusted,
	}, nil
}

// Route: POST /api/v1/security/mfa/disable
func (h *HTTPEndpoint) MFADisable(r *router.Request) (any, error) {
	return nil, h.uc.MFADisable(r.Context())
}

// Route: GET /api/v1/security/mfa
func (h *HTTPEndpoint) MFAStatus(r *router.Request) (any, error) {
	out, err := h.uc.MFAStatus(r.Context())
	if err != nil {
		return nil, err
	}

	return MFAStatusResponse{
		Enabled:      out.Enabled,
		PendingSetup: out.PendingSetup,
		Devices:      toDeviceResponses(out.Devices),
	}, nil
}

// Route: GET /api/v1/security/devices
func (h *HTTPEndpoint) TrustedDeviceList(r *router.Request) (any, error) {
	devices, err := h.uc.TrustedDeviceList(r.Context())
	if err != nil {
		return nil, err
	}

	return TrustedDevicesResponse{Devices: toDeviceResponses(devices)}, nil
}

// Route: DELETE /api/v1/security/devices/:id
func (h *HTTPEndpoint) TrustedDeviceRemove(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	return nil, h.uc.TrustedDeviceRemove(r.Context(), usecase.TrustedDeviceRemoveInput{ID: id})
}

// Route: GET /api/v1/security/events?limit=20
func (h *HTTPEndpoint) AuditEventList(r *router.Request) (any, error) {
	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, goerror.NewInvalidFormat("limit must integer value")
		}
		limit = n
	}

	events, err := h.uc.AuditEventList(r.Context(), usecase.AuditEventListInput{Limit: limit})
	if err != nil {
		return nil, err
	}

	return AuditEventsResponse{
		Events: lo.Map(events, func(ev entity.AuditEvent, _ int) AuditEventResponse {
			return AuditEventResponse{
				ID:            ev.ID,
				Kind:          string(ev.Kind),
				CorrelationID: ev.CorrelationID,
				Payload:       ev.Payload,
				OccurredAt:    ev.OccurredAt,
			}
		}),
	}, nil
}

func toDeviceResponses(devices []usecase.DeviceView) []TrustedDeviceResponse {
	resp := make([]TrustedDeviceResponse, 0, len(devices))
	for _, d := range devices {
		resp = append(resp, TrustedDeviceResponse{
			ID:         d.ID,
			Label:      d.Label,
			Current:    d.Current,
			Active:     d.Active,
			LastSeenAt: d.LastSeenAt,
			CreatedAt:  d.CreatedAt,
		})
	}

	return resp
}
