package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	revocationdomain "blogger-platform/backend/internal/revocation/domain"
	revocationrepo "blogger-platform/backend/internal/revocation/repository"
	"blogger-platform/backend/internal/session/domain"
)

const sessionColumns = `device_id, user_id, ip, title, last_active_date, expiration_date`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts s, or on a (user_id, title) conflict takes over the existing row with s's device id.
func (r *PostgresRepository) Upsert(ctx context.Context, s *domain.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, title) DO UPDATE SET
			device_id = EXCLUDED.device_id,
			ip = EXCLUDED.ip,
			last_active_date = EXCLUDED.last_active_date,
			expiration_date = EXCLUDED.expiration_date
	`, s.DeviceID, s.UserID, s.IP, s.Title, s.LastActiveDate, s.ExpirationDate)
	return err
}

// GetByDeviceID returns the session for deviceID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE device_id = $1`, deviceID).
		Scan(&s.DeviceID, &s.UserID, &s.IP, &s.Title, &s.LastActiveDate, &s.ExpirationDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListActiveByUser returns the user's non-expired sessions ordered by last_active_date descending.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND expiration_date > $2
		ORDER BY last_active_date DESC
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.DeviceID, &s.UserID, &s.IP, &s.Title, &s.LastActiveDate, &s.ExpirationDate); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Rotate records consumed as revoked and refreshes the session's activity window in one transaction.
// An empty s.IP keeps the stored ip.
func (r *PostgresRepository) Rotate(ctx context.Context, s *domain.Session, consumed *revocationdomain.Entry) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		inserted, err := revocationrepo.InsertEntry(ctx, tx, consumed)
		if err != nil {
			return fmt.Errorf("revoke consumed token: %w", err)
		}
		if !inserted {
			return revocationdomain.ErrAlreadyRevoked
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE sessions SET
				ip = CASE WHEN $3 = '' THEN ip ELSE $3 END,
				last_active_date = $4,
				expiration_date = $5
			WHERE device_id = $1 AND user_id = $2
		`, s.DeviceID, s.UserID, s.IP, s.LastActiveDate, s.ExpirationDate)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrSessionNotFound
		}
		return nil
	})
}

// End records consumed as revoked (a prior revocation is not an error) and deletes the device row.
func (r *PostgresRepository) End(ctx context.Context, userID, deviceID string, consumed *revocationdomain.Entry) (bool, error) {
	var deleted bool
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := revocationrepo.InsertEntry(ctx, tx, consumed); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE device_id = $1 AND user_id = $2`, deviceID, userID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// DeleteByDevice deletes the device row only when it belongs to userID.
func (r *PostgresRepository) DeleteByDevice(ctx context.Context, userID, deviceID string) (bool, error) {
	n, err := r.exec(ctx, `DELETE FROM sessions WHERE device_id = $1 AND user_id = $2`, deviceID, userID)
	return n > 0, err
}

// DeleteAllExcept deletes every session of userID other than keepDeviceID.
func (r *PostgresRepository) DeleteAllExcept(ctx context.Context, userID, keepDeviceID string) (int64, error) {
	return r.exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND device_id <> $2`, userID, keepDeviceID)
}

// DeleteAllByUser deletes every session of userID, expired or not.
func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	return r.exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
}

// DeleteExpired deletes sessions expired at or before now with one conditional delete.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, `DELETE FROM sessions WHERE expiration_date <= $1`, now)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
