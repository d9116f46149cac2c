package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shandysiswandi/apex/internal/security/entity"
)

const (
	sqlGetTrustedDevice = `SELECT id, user_id, device_hash, label, last_seen_at, created_at
FROM security_trusted_devices WHERE user_id = $1 AND device_hash = $2`

	sqlListTrustedDevices = `SELECT id, user_id, device_hash, label, last_seen_at, created_at
FROM security_trusted_devices WHERE user_id = $1 ORDER BY last_seen_at DESC, id DESC`

	sqlUpsertTrustedDevice = `INSERT INTO security_trusted_devices (id, user_id, device_hash, label, last_seen_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, device_hash) DO UPDATE
SET last_seen_at = EXCLUDED.last_seen_at`

	sqlUpsertTrustedDeviceRelabel = `INSERT INTO security_trusted_devices (id, user_id, device_hash, label, last_seen_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, device_hash) DO UPDATE
SET label = EXCLUDED.label, last_seen_at = EXCLUDED.last_seen_at`

	sqlTouchTrustedDevice = `UPDATE security_trusted_devices SET last_seen_at = $3 WHERE id = $1 AND user_id = $2`

	sqlDeleteTrustedDevice = `DELETE FROM security_trusted_devices WHERE id = $1 AND user_id = $2`
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// upsertTrustedDevice keeps the label of a known device unless relabel is set.
func upsertTrustedDevice(ctx context.Context, q execer, d entity.TrustedDevice, relabel bool) error {
	query := sqlUpsertTrustedDevice
	if relabel {
		query = sqlUpsertTrustedDeviceRelabel
	}

	_, err := q.Exec(ctx, query, d.ID, d.UserID, d.DeviceHash, d.Label, d.LastSeenAt, d.CreatedAt)
	return err
}

func (s *DB) GetTrustedDevice(ctx context.Context, userID int64, deviceHash string) (_ *entity.TrustedDevice, err error) {
	ctx, span := s.startSpan(ctx, "GetTrustedDevice")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, sqlGetTrustedDevice, userID, deviceHash)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}

	d, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[entity.TrustedDevice])
	if err = s.mapError(err); err != nil {
		return nil, err
	}

	return &d, nil
}

func (s *DB) ListTrustedDevices(ctx context.Context, userID int64) (_ []entity.TrustedDevice, err error) {
	ctx, span := s.startSpan(ctx, "ListTrustedDevices")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, sqlListTrustedDevices, userID)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}

	devices, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entity.TrustedDevice])
	if err = s.mapError(err); err != nil {
		return nil, err
	}

	return devices, nil
}

// UpsertTrustedDevice trusts d, or refreshes last_seen_at when it is known.
func (s *DB) UpsertTrustedDevice(ctx context.Context, d entity.TrustedDevice) (err error) {
	ctx, span := s.startSpan(ctx, "UpsertTrustedDevice")
	defer func() { s.endSpan(span, err) }()

	err = s.mapError(upsertTrustedDevice(ctx, s.conn, d, false))
	return err
}

func (s *DB) TouchTrustedDevice(ctx context.Context, id, userID int64, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "TouchTrustedDevice")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, sqlTouchTrustedDevice, id, userID, at)
	err = s.mapError(err)
	return err
}

// DeleteTrustedDevice reports whether a row belonging to userID was removed.
func (s *DB) DeleteTrustedDevice(ctx context.Context, id, userID int64) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "DeleteTrustedDevice")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, sqlDeleteTrustedDevice, id, userID)
	if err = s.mapError(err); err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
