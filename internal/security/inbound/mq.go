package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/apex/internal/pkg/config"
	"github.com/shandysiswandi/apex/internal/pkg/goroutine"
	"github.com/shandysiswandi/apex/internal/pkg/instrument"
	"github.com/shandysiswandi/apex/internal/pkg/messaging"
	"github.com/shandysiswandi/apex/internal/pkg/uid"
	"github.com/shandysiswandi/apex/internal/shared/event"
)

const defaultConsumerConcurrency = 4

// RegisterMQConsumer starts the consumers listed in
// modules.security.consumer_names. An empty list starts none.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	handler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.security.consumer_names")

	concurrency := cfg.GetInt("modules.security.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = defaultConsumerConcurrency
	}

	consumers := []struct {
		name    string
		topic   string
		handler messaging.Handler
	}{
		{
			name:    event.SecurityEventsConsumerAudit,
			topic:   event.SecurityEventsDestination,
			handler: handler.RecordAuditEvent,
		},
	}

	for _, consumer := range consumers {
		if !slices.Contains(enabled, consumer.name) {
			continue
		}

		if err := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
			return messenger.Consume(pCtx,
				consumer.topic,
				consumer.handler,
				messaging.WithGroup(consumer.name),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
			)
		}); err != nil {
			slog.ErrorContext(ctx, "failed to start consumer", "consumer", consumer.name, "error", err)
		}
	}
}
