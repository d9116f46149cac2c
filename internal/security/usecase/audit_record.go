package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/pkg/idempotency"
	"github.com/shandysiswandi/apex/internal/pkg/valueobject"
	"github.com/shandysiswandi/apex/internal/security/entity"
)

type RecordAuditEventInput struct {
	ID            int64  `validate:"required,gt=0"`
	UserID        int64  `validate:"required,gt=0"`
	Kind          string `validate:"required"`
	CorrelationID string
	Payload       map[string]any
	OccurredAt    time.Time
}

// RecordAuditEvent persists an event from the stream. Redelivered events are
// dropped by id. Malformed events are logged and acknowledged.
func (s *Usecase) RecordAuditEvent(ctx context.Context, in RecordAuditEventInput) error {
	ctx, span := s.startSpan(ctx, "RecordAuditEvent")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "invalid audit event", "error", err)
		return nil
	}

	kind := entity.EventKind(in.Kind)
	if !kind.IsValid() {
		slog.ErrorContext(ctx, "unknown audit event kind", "kind", in.Kind, "event_id", in.ID)
		return nil
	}

	if in.OccurredAt.IsZero() {
		in.OccurredAt = s.clock.Now()
	}

	ev := entity.AuditEvent{
		ID:            in.ID,
		UserID:        in.UserID,
		Kind:          kind,
		CorrelationID: in.CorrelationID,
		Payload:       valueobject.JSONMap(in.Payload),
		OccurredAt:    in.OccurredAt,
	}

	key := "security:audit:" + strconv.FormatInt(in.ID, 10)
	err := s.idemp.Exec(ctx, key, func(ctx context.Context) error {
		return s.repoDB.CreateAuditEvent(ctx, ev)
	}, idempotency.WithStateTTL(s.idempotencyTTL))

	switch {
	case err == nil, errors.Is(err, idempotency.ErrAlreadyCompleted):
		return nil
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		slog.WarnContext(ctx, "audit event is being recorded elsewhere", "event_id", in.ID)
		return err
	default:
		slog.ErrorContext(ctx, "failed to record audit event", "event_id", in.ID, "kind", kind, "error", err)
		return goerror.NewServer(err)
	}
}

type AuditEventListInput struct {
	Limit int `validate:"omitempty,min=1,max=100"`
}

// AuditEventList returns the caller's recent security activity, newest first.
func (s *Usecase) AuditEventList(ctx context.Context, in AuditEventListInput) ([]entity.AuditEvent, error) {
	ctx, span := s.startSpan(ctx, "AuditEventList")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if in.Limit == 0 {
		in.Limit = 20
	}

	events, err := s.repoDB.ListAuditEvents(ctx, clm.UserID, in.Limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list audit events", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return events, nil
}
