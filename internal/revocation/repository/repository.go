package repository

import (
	"context"
	"time"

	"blogger-platform/backend/internal/revocation/domain"
)

// Repository defines persistence for revoked refresh tokens.
type Repository interface {
	// Add records e. Returns false without error when the hash is already present.
	Add(ctx context.Context, e *domain.Entry) (bool, error)
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
	// DeleteExpired removes entries whose token expired at or before now. Returns the number removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
