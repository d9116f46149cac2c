package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/apex/internal/pkg/instrument"
	"github.com/shandysiswandi/apex/internal/pkg/messaging"
	"github.com/shandysiswandi/apex/internal/pkg/uid"
	"github.com/shandysiswandi/apex/internal/security/usecase"
	"github.com/shandysiswandi/apex/internal/shared/event"
)

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(event.HeaderCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) RecordAuditEvent(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("security.inbound.mq").Start(ctx, "RecordAuditEvent")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: security audit event", "msg_body", string(body))

	var payload event.SecurityEventMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of security audit event", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.RecordAuditEvent(ctx, usecase.RecordAuditEventInput{
		ID:            payload.ID,
		UserID:        payload.UserID,
		Kind:          payload.Kind,
		CorrelationID: instrument.GetCorrelationID(ctx),
		Payload:       payload.Payload,
		OccurredAt:    payload.OccurredAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to record security audit event", "event_id", payload.ID, "error", err)
		return err
	}

	return nil
}
