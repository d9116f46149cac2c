package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/apex/internal/pkg/device"
	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/pkg/valueobject"
	"github.com/shandysiswandi/apex/internal/security/entity"
)

type MFAConfirmInput struct {
	Code        string `validate:"required,max=32"`
	DeviceLabel string `validate:"max=80"`
}

type MFAConfirmOutput struct {
	DeviceTrusted bool
}

// MFAConfirm turns on MFA once the user proves their authenticator holds the
// pending secret. The confirming browser becomes a trusted device.
func (s *Usecase) MFAConfirm(ctx context.Context, in MFAConfirmInput) (*MFAConfirmOutput, error) {
	ctx, span := s.startSpan(ctx, "MFAConfirm")
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
	if !m.HasSecret() {
		return nil, goerror.NewBusiness("Start setup first.", goerror.CodeNotFound)
	}

	if err := s.verifyCode(ctx, m, in.Code, flowConfirm); err != nil {
		return nil, err
	}

	trusted, err := s.newTrustedDevice(ctx, clm.UserID, device.FromContext(ctx))
	if err != nil {
		return nil, err
	}
	label := strings.TrimSpace(in.DeviceLabel)
	if trusted != nil && label != "" {
		trusted.Label = label
	}

	err = s.repoDB.EnableUserMFA(ctx, entity.MFAActivation{
		UserID:        clm.UserID,
		Secret:        m.Secret,
		Device:        trusted,
		RelabelDevice: label != "",
	})
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "mfa secret replaced before confirm", "user_id", clm.UserID)
		return nil, goerror.NewBusiness(msgSetupReplaced, goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo enable user mfa", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.emit(ctx, clm.UserID, entity.EventMFAEnabled, nil)
	if trusted != nil {
		s.emit(ctx, clm.UserID, entity.EventTrustedDeviceAdded, valueobject.JSONMap{"label": trusted.Label})
	}

	return &MFAConfirmOutput{DeviceTrusted: trusted != nil}, nil
}
