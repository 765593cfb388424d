package repository

import (
	"context"
	"database/sql"
	"time"

	"blogger-platform/backend/internal/revocation/domain"
)

// Querier is satisfied by *sql.DB and *sql.Tx so the insert can join a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const insertEntrySQL = `INSERT INTO revocation_entries (token_hash, user_id, reason, recorded_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (token_hash) DO NOTHING`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a revocation repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Add inserts e unless its hash is already revoked.
func (r *PostgresRepository) Add(ctx context.Context, e *domain.Entry) (bool, error) {
	return InsertEntry(ctx, r.db, e)
}

// IsRevoked reports whether tokenHash is present, regardless of expiry.
func (r *PostgresRepository) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revocation_entries WHERE token_hash = $1)`, tokenHash).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteExpired removes entries whose token expired at or before now in one conditional delete.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revocation_entries WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertEntry inserts e with q. Returns false when the hash was already present.
func InsertEntry(ctx context.Context, q Querier, e *domain.Entry) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, insertEntrySQL, e.TokenHash, e.UserID, string(e.Reason), e.RecordedAt, e.ExpiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
