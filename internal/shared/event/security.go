// Package event defines payloads exchanged between modules over messaging.
package event

import "time"

const (
	// SecurityEventsDestination is the subject/topic carrying account security events.
	SecurityEventsDestination string = "security.events"
	// SecurityEventsConsumerAudit is the consumer group persisting the audit log.
	SecurityEventsConsumerAudit string = "security-audit"
	// HeaderCorrelationID carries the originating request's correlation id.
	HeaderCorrelationID string = "cID"
)

// SecurityEventMessage is the wire form of an audit event.
type SecurityEventMessage struct {
	ID         int64          `json:"id,string"`
	UserID     int64          `json:"user_id,string"`
	Kind       string         `json:"kind"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
