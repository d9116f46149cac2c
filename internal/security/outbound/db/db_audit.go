package db

import (
	"context"

	"github.com/shandysiswandi/apex/internal/security/entity"
)

const sqlCreateAuditEvent = `INSERT INTO security_audit_events (id, user_id, kind, correlation_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`

const sqlListAuditEvents = `SELECT id, user_id, kind, correlation_id, payload, occurred_at
FROM security_audit_events WHERE user_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT $2`

// CreateAuditEvent stores ev once. Replaying an id is a no-op.
func (s *DB) CreateAuditEvent(ctx context.Context, ev entity.AuditEvent) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAuditEvent")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, sqlCreateAuditEvent, ev.ID, ev.UserID, string(ev.Kind), ev.CorrelationID, ev.Payload, ev.OccurredAt)
	err = s.mapError(err)
	return err
}

// ListAuditEvents returns the newest events of a user first.
func (s *DB) ListAuditEvents(ctx context.Context, userID int64, limit int) (_ []entity.AuditEvent, err error) {
	ctx, span := s.startSpan(ctx, "ListAuditEvents")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, sqlListAuditEvents, userID, limit)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	defer rows.Close()

	var out []entity.AuditEvent
	for rows.Next() {
		var ev entity.AuditEvent
		var kind string
		if err = rows.Scan(&ev.ID, &ev.UserID, &kind, &ev.CorrelationID, &ev.Payload, &ev.OccurredAt); err != nil {
			return nil, err
		}
		ev.Kind = entity.EventKind(kind)
		out = append(out, ev)
	}
	err = rows.Err()

	return out, err
}
