package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/apex/internal/security/entity"
)

const (
	sqlGetUserMFA = `SELECT user_id, secret, key_version, enabled, updated_at
FROM security_user_mfa WHERE user_id = $1`

	sqlUpsertUserMFASecret = `INSERT INTO security_user_mfa (user_id, secret, key_version, enabled, created_at, updated_at)
VALUES ($1, $2, $3, FALSE, $4, $4)
ON CONFLICT (user_id) DO UPDATE
SET secret = EXCLUDED.secret, key_version = EXCLUDED.key_version, enabled = FALSE, updated_at = EXCLUDED.updated_at`

	sqlEnableUserMFA = `UPDATE security_user_mfa SET enabled = TRUE, updated_at = $2
WHERE user_id = $1 AND secret = $3`

	sqlDisableUserMFA = `UPDATE security_user_mfa SET secret = NULL, enabled = FALSE, updated_at = $2
WHERE user_id = $1`

	sqlDeleteUserTrustedDevices = `DELETE FROM security_trusted_devices WHERE user_id = $1`
)

func (s *DB) GetUserMFA(ctx context.Context, userID int64) (_ *entity.UserMFA, err error) {
	ctx, span := s.startSpan(ctx, "GetUserMFA")
	defer func() { s.endSpan(span, err) }()

	var m entity.UserMFA
	err = s.conn.QueryRow(ctx, sqlGetUserMFA, userID).Scan(&m.UserID, &m.Secret, &m.KeyVersion, &m.Enabled, &m.UpdatedAt)
	if err = s.mapError(err); err != nil {
		return nil, err
	}

	return &m, nil
}

func (s *DB) UpsertUserMFASecret(ctx context.Context, userID int64, secret []byte, keyVersion int16) (err error) {
	ctx, span := s.startSpan(ctx, "UpsertUserMFASecret")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, sqlUpsertUserMFASecret, userID, secret, keyVersion, time.Now().UTC())
	err = s.mapError(err)
	return err
}

// EnableUserMFA flips the flag only while a.Secret is still the stored
// secret, and trusts a.Device in the same transaction. A replaced or missing
// secret maps to goerror.ErrNotFound.
func (s *DB) EnableUserMFA(ctx context.Context, a entity.MFAActivation) (err error) {
	ctx, span := s.startSpan(ctx, "EnableUserMFA")
	defer func() { s.endSpan(span, err) }()

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sqlEnableUserMFA, a.UserID, time.Now().UTC(), a.Secret)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}

		if a.Device == nil {
			return nil
		}

		return upsertTrustedDevice(ctx, tx, *a.Device, a.RelabelDevice)
	})
	return err
}

// DisableUserMFA clears the secret and removes every trusted device. It
// returns how many devices were removed.
func (s *DB) DisableUserMFA(ctx context.Context, userID int64) (removed int64, err error) {
	ctx, span := s.startSpan(ctx, "DisableUserMFA")
	defer func() { s.endSpan(span, err) }()

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sqlDisableUserMFA, userID, time.Now().UTC()); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, sqlDeleteUserTrustedDevices, userID)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected()

		return nil
	})
	return removed, err
}
