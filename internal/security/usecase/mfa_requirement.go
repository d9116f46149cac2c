package usecase

import (
	"context"
	"log/slog"
)

type MFARequirementOutput struct {
	Required      bool
	Enabled       bool
	DeviceTrusted bool
}

// MFARequirement tells the sign-in flow whether to show the challenge. A
// trusted device within its TTL skips it and has last_seen_at refreshed.
func (s *Usecase) MFARequirement(ctx context.Context) (*MFARequirementOutput, error) {
	ctx, span := s.startSpan(ctx, "MFARequirement")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.getUserMFA(ctx, clm.UserID)
	if err != nil {
		return nil, err
	}
	if !m.IsEnabled() {
		return &MFARequirementOutput{}, nil
	}

	d, err := s.currentTrustedDevice(ctx, clm.UserID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if d == nil || !d.IsActive(now, s.trustedDeviceTTL) {
		return &MFARequirementOutput{Required: true, Enabled: true}, nil
	}

	if err := s.repoDB.TouchTrustedDevice(ctx, d.ID, clm.UserID, now); err != nil {
		slog.WarnContext(ctx, "failed to refresh trusted device", "user_id", clm.UserID, "device_id", d.ID, "error", err)
	}

	return &MFARequirementOutput{Enabled: true, DeviceTrusted: true}, nil
}
