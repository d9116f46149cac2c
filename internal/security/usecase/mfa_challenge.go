package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/apex/internal/pkg/device"
	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/pkg/valueobject"
	"github.com/shandysiswandi/apex/internal/security/entity"
)

type MFAChallengeInput struct {
	Code     string `validate:"max=32"`
	Remember bool
}

type MFAChallengeOutput struct {
	Verified      bool
	DeviceTrusted bool
}

// MFAChallenge is the second sign-in step. Accounts without MFA pass
// without a code.
func (s *Usecase) MFAChallenge(ctx context.Context, in MFAChallengeInput) (*MFAChallengeOutput, error) {
	ctx, span := s.startSpan(ctx, "MFAChallenge")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	m, err := s.getUserMFA(ctx, clm.UserID)
	if err != nil {
		return nil, err
	}
	if !m.IsEnabled() {
		return &MFAChallengeOutput{Verified: true}, nil
	}

	if err := s.verifyCode(ctx, m, in.Code, flowChallenge); err != nil {
		return nil, err
	}

	s.emit(ctx, clm.UserID, entity.EventMFAChallengePassed, valueobject.JSONMap{"remember": in.Remember})

	out := &MFAChallengeOutput{Verified: true}
	if !in.Remember {
		return out, nil
	}

	trusted, err := s.newTrustedDevice(ctx, clm.UserID, device.FromContext(ctx))
	if err != nil {
		return nil, err
	}
	if trusted == nil {
		return out, nil
	}

	if err := s.repoDB.UpsertTrustedDevice(ctx, *trusted); err != nil {
		slog.ErrorContext(ctx, "failed to repo upsert trusted device", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.emit(ctx, clm.UserID, entity.EventTrustedDeviceAdded, valueobject.JSONMap{"label": trusted.Label})
	out.DeviceTrusted = true

	return out, nil
}
