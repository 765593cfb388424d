package repository

import (
	"context"
	"database/sql"

	"blogger-platform/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, device_id, action, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, nullString(a.UserID), nullString(a.DeviceID), a.Action, a.IP, nullString(a.Metadata), a.CreatedAt)
	return err
}

// ListByUser returns the user's most recent audit logs, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, device_id, action, ip, metadata, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a                      domain.AuditLog
			uid, deviceID, metadata sql.NullString
		)
		if err := rows.Scan(&a.ID, &uid, &deviceID, &a.Action, &a.IP, &metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.UserID, a.DeviceID, a.Metadata = uid.String, deviceID.String, metadata.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
