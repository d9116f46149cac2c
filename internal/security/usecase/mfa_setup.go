package usecase

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/pkg/idempotency"
	"github.com/shandysiswandi/apex/internal/pkg/mfa"
	"github.com/shandysiswandi/apex/internal/security/entity"
)

type MFASetupInput struct {
	IdempotencyKey string `validate:"omitempty,idempotency_key"`
}

type MFASetupOutput struct {
	Secret string
	URI    string
}

// MFASetup issues a fresh secret and stores it pending confirmation. Running
// it again before confirming replaces the pending secret.
func (s *Usecase) MFASetup(ctx context.Context, in MFASetupInput) (*MFASetupOutput, error) {
	ctx, span := s.startSpan(ctx, "MFASetup")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	current, err := s.getUserMFA(ctx, clm.UserID)
	if err != nil {
		return nil, err
	}
	if current.IsEnabled() {
		return nil, goerror.NewBusiness("Disable two-step verification first.", goerror.CodeConflict)
	}

	uid := strconv.FormatInt(clm.UserID, 10)
	userLock := "security:mfa_setup:" + uid
	if err := s.acquireSetupLock(ctx, clm.UserID, userLock); err != nil {
		return nil, err
	}
	defer s.releaseSetupLock(ctx, userLock)

	keyLock := ""
	if in.IdempotencyKey != "" {
		keyLock = "security:mfa_setup_key:" + uid + ":" + in.IdempotencyKey
		if err := s.acquireSetupLock(ctx, clm.UserID, keyLock); err != nil {
			return nil, err
		}
	}

	out, err := s.issueSecret(ctx, clm.UserID, clm.UserEmail)
	if keyLock != "" {
		s.finishSetupKey(ctx, keyLock, err == nil)
	}
	if err != nil {
		return nil, err
	}

	s.emit(ctx, clm.UserID, entity.EventMFASetupStarted, nil)

	return out, nil
}

func (s *Usecase) issueSecret(ctx context.Context, userID int64, accountName string) (*MFASetupOutput, error) {
	if accountName == "" {
		accountName = strconv.FormatInt(userID, 10)
	}

	secret, uri, err := s.totp.Generate(accountName)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate totp secret", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}

	sealed, err := s.mfaEncryptor.Encrypt([]byte(secret), mfa.Scope{UserID: userID, Purpose: mfa.PurposeTOTPSecret})
	if err != nil {
		slog.ErrorContext(ctx, "failed to encrypt totp secret", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.UpsertUserMFASecret(ctx, userID, sealed, currentKeyVersion); err != nil {
		slog.ErrorContext(ctx, "failed to repo upsert user mfa secret", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &MFASetupOutput{Secret: secret, URI: uri}, nil
}

func (s *Usecase) acquireSetupLock(ctx context.Context, userID int64, key string) error {
	state, err := s.idemp.Acquire(ctx, key, s.setupLock)
	if err != nil {
		slog.ErrorContext(ctx, "failed to acquire mfa setup lock", "user_id", userID, "error", err)
		return goerror.NewServer(err)
	}

	switch state {
	case idempotency.StateCompleted:
		return goerror.NewBusiness("This setup request was already processed.", goerror.CodeConflict)
	case idempotency.StateInProgress:
		slog.WarnContext(ctx, "concurrent mfa setup rejected", "user_id", userID)
		return goerror.NewBusiness("Setup is already in progress.", goerror.CodeConflict)
	}

	return nil
}

func (s *Usecase) releaseSetupLock(ctx context.Context, key string) {
	if err := s.idemp.Release(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to release mfa setup lock", "key", key, "error", err)
	}
}

// finishSetupKey remembers a client-supplied key so a replay is rejected. A
// failed attempt frees the key for a retry.
func (s *Usecase) finishSetupKey(ctx context.Context, key string, ok bool) {
	if !ok {
		s.releaseSetupLock(ctx, key)
		return
	}

	if err := s.idemp.MarkCompleted(ctx, key, s.idempotencyTTL); err != nil {
		slog.WarnContext(ctx, "failed to mark mfa setup key completed", "key", key, "error", err)
	}
}
