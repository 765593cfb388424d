package repository

import (
	"context"
	"database/sql"
	"errors"

	"blogger-platform/backend/internal/user/domain"
)

const userColumns = `id, login, email, password_hash, role, is_banned, ban_date, ban_reason, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByLoginOrEmail returns the user whose login or email equals loginOrEmail, or nil if not found.
func (r *PostgresRepository) GetByLoginOrEmail(ctx context.Context, loginOrEmail string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE login = $1 OR lower(email) = lower($1) LIMIT 1`, loginOrEmail)
	return scanUser(row)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	banReason := sql.NullString{String: u.Ban.BanReason, Valid: u.Ban.BanReason != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Login, u.Email, u.PasswordHash, string(u.Role), u.Ban.IsBanned, u.Ban.BanDate, banReason, u.CreatedAt)
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u         domain.User
		role      string
		banDate   sql.NullTime
		banReason sql.NullString
	)
	err := row.Scan(&u.ID, &u.Login, &u.Email, &u.PasswordHash, &role, &u.Ban.IsBanned, &banDate, &banReason, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	if banDate.Valid {
		t := banDate.Time
		u.Ban.BanDate = &t
	}
	u.Ban.BanReason = banReason.String
	return &u, nil
}
