package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/apex/internal/pkg/instrument"
	"github.com/shandysiswandi/apex/internal/pkg/messaging"
	"github.com/shandysiswandi/apex/internal/security/entity"
	"github.com/shandysiswandi/apex/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const (
	publishBaseDelay = 100 * time.Millisecond
	publishMaxDelay  = 2 * time.Second
	publishRetries   = 4
)

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation

	backoff func() retry.Backoff
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{
		client: client,
		ins:    ins,
		backoff: func() retry.Backoff {
			b := retry.NewFibonacci(publishBaseDelay)
			b = retry.WithCappedDuration(publishMaxDelay, b)
			return retry.WithMaxRetries(publishRetries, b)
		},
	}
}

// PublishAuditEvent sends ev to the security event stream keyed by user so a
// user's events stay ordered on partitioned brokers. Transient broker errors
// are retried with capped Fibonacci backoff.
func (m *Messaging) PublishAuditEvent(ctx context.Context, ev entity.AuditEvent) error {
	ctx, span := m.ins.Tracer("security.outbound.mq").Start(ctx, "PublishAuditEvent")
	defer span.End()

	body, err := json.Marshal(event.SecurityEventMessage{
		ID:         ev.ID,
		UserID:     ev.UserID,
		Kind:       string(ev.Kind),
		Payload:    ev.Payload,
		OccurredAt: ev.OccurredAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := ev.CorrelationID
	if cID == "" {
		cID = instrument.GetCorrelationID(ctx)
	}

	msg := messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(strconv.FormatInt(ev.UserID, 10)),
		Headers: map[string]string{event.HeaderCorrelationID: cID},
	}

	err = retry.Do(ctx, m.backoff(), func(ctx context.Context) error {
		err := m.client.Publish(ctx, event.SecurityEventsDestination, msg)
		if err == nil || errors.Is(err, messaging.ErrClosed) || errors.Is(err, messaging.ErrDestinationRequired) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
