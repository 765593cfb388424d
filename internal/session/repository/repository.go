package repository

import (
	"context"
	"errors"
	"time"

	revocationdomain "blogger-platform/backend/internal/revocation/domain"
	"blogger-platform/backend/internal/session/domain"
)

// ErrSessionNotFound is returned by Rotate when the session row no longer exists for the user and device.
var ErrSessionNotFound = errors.New("session not found")

// Repository defines persistence for device sessions.
type Repository interface {
	// Upsert inserts s or replaces the row with the same (user_id, title) in a single statement.
	Upsert(ctx context.Context, s *domain.Session) error
	// GetByDeviceID returns the session for deviceID regardless of expiry, or nil if not found.
	GetByDeviceID(ctx context.Context, deviceID string) (*domain.Session, error)
	// ListActiveByUser returns the user's sessions not expired at now, most recently active first.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	// Rotate revokes consumed and updates s in one transaction. Returns revocationdomain.ErrAlreadyRevoked when
	// consumed was already revoked and ErrSessionNotFound when the row is gone; nothing is written in either case.
	Rotate(ctx context.Context, s *domain.Session, consumed *revocationdomain.Entry) error
	// End revokes consumed (if not already) and deletes the user's device row in one transaction.
	// Returns whether a row was deleted.
	End(ctx context.Context, userID, deviceID string, consumed *revocationdomain.Entry) (bool, error)
	// DeleteByDevice deletes the device row only if it belongs to userID. Returns whether a row was deleted.
	DeleteByDevice(ctx context.Context, userID, deviceID string) (bool, error)
	// DeleteAllExcept deletes every session of userID other than keepDeviceID.
	DeleteAllExcept(ctx context.Context, userID, keepDeviceID string) (int64, error)
	// DeleteAllByUser deletes every session of userID regardless of expiry.
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
	// DeleteExpired deletes sessions whose expiration_date is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
