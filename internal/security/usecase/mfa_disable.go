package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/pkg/valueobject"
	"github.com/shandysiswandi/apex/internal/security/entity"
)

// MFADisable drops the secret and forgets every trusted device.
func (s *Usecase) MFADisable(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "MFADisable")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return err
	}

	removed, err := s.repoDB.DisableUserMFA(ctx, clm.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo disable user mfa", "user_id", clm.UserID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoCache.Reset(ctx, clm.UserID); err != nil {
		slog.WarnContext(ctx, "failed to reset mfa attempts", "user_id", clm.UserID, "error", err)
	}

	s.emit(ctx, clm.UserID, entity.EventMFADisabled, valueobject.JSONMap{"removed_devices": removed})

	return nil
}
