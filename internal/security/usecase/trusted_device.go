package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/pkg/valueobject"
	"github.com/shandysiswandi/apex/internal/security/entity"
)

func (s *Usecase) TrustedDeviceList(ctx context.Context) ([]DeviceView, error) {
	ctx, span := s.startSpan(ctx, "TrustedDeviceList")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	return s.deviceViews(ctx, clm.UserID)
}

type TrustedDeviceRemoveInput struct {
	ID int64
}

// TrustedDeviceRemove forgets one of the caller's devices. Removing an
// unknown or foreign id succeeds without effect.
func (s *Usecase) TrustedDeviceRemove(ctx context.Context, in TrustedDeviceRemoveInput) error {
	ctx, span := s.startSpan(ctx, "TrustedDeviceRemove")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return err
	}

	if in.ID <= 0 {
		return goerror.NewInvalidInput(nil, "id", "Missing device.")
	}

	removed, err := s.repoDB.DeleteTrustedDevice(ctx, in.ID, clm.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete trusted device", "user_id", clm.UserID, "device_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	if removed {
		s.emit(ctx, clm.UserID, entity.EventTrustedDeviceRemoved, valueobject.JSONMap{"device_id": in.ID})
	}

	return nil
}
