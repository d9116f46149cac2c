package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/pkg/mfa"
	"github.com/shandysiswandi/apex/internal/pkg/valueobject"
	"github.com/shandysiswandi/apex/internal/security/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	flowConfirm   = "confirm"
	flowChallenge = "challenge"

	outcomePassed = "passed"
	outcomeFailed = "failed"
	outcomeLocked = "locked"

	msgInvalidCode = "Invalid code."
	msgTooMany     = "Too many attempts. Try again later."

	msgSetupReplaced = "Setup was restarted. Scan the new code and try again."
)

func (s *Usecase) openSecret(ctx context.Context, m *entity.UserMFA) (string, error) {
	plain, err := s.mfaEncryptor.Decrypt(m.Secret, mfa.Scope{UserID: m.UserID, Purpose: mfa.PurposeTOTPSecret})
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt totp secret", "user_id", m.UserID, "key_version", m.KeyVersion, "error", err)
		return "", goerror.NewServer(err)
	}

	return string(plain), nil
}

// verifyCode checks code against the user's secret behind the attempt
// limiter. A locked account is rejected before any code is computed.
func (s *Usecase) verifyCode(ctx context.Context, m *entity.UserMFA, code, flow string) error {
	locked, err := s.repoCache.IsLocked(ctx, m.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check mfa lockout", "user_id", m.UserID, "error", err)
		return goerror.NewServer(err)
	}
	if locked {
		s.countVerification(ctx, flow, outcomeLocked)
		slog.WarnContext(ctx, "mfa verification while locked out", "user_id", m.UserID, "flow", flow)
		return goerror.NewBusiness(msgTooMany, goerror.CodeTooManyRequest)
	}

	secret, err := s.openSecret(ctx, m)
	if err != nil {
		return err
	}

	if !s.totp.Validate(code, secret, s.clock.Now()) {
		s.countVerification(ctx, flow, outcomeFailed)
		slog.WarnContext(ctx, "invalid totp code", "user_id", m.UserID, "flow", flow)

		nowLocked, err := s.repoCache.RecordFailure(ctx, m.UserID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to record mfa failure", "user_id", m.UserID, "error", err)
		}
		s.emit(ctx, m.UserID, entity.EventMFAChallengeFailed, valueobject.JSONMap{"flow": flow, "locked": nowLocked})

		return goerror.NewBusiness(msgInvalidCode, goerror.CodeUnauthorized)
	}

	s.countVerification(ctx, flow, outcomePassed)
	if err := s.repoCache.Reset(ctx, m.UserID); err != nil {
		slog.WarnContext(ctx, "failed to reset mfa attempts", "user_id", m.UserID, "error", err)
	}

	return nil
}

func (s *Usecase) countVerification(ctx context.Context, flow, outcome string) {
	if s.verifications == nil {
		return
	}

	s.verifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", outcome),
	))
}
