package domain

import (
	"errors"
	"time"
)

// ErrAlreadyRevoked is returned when a token hash is already present in the revocation store.
var ErrAlreadyRevoked = errors.New("token already revoked")

// Reason records why a token was revoked.
type Reason string

const (
	ReasonRotated      Reason = "rotated"
	ReasonLogout       Reason = "logout"
	ReasonReuse        Reason = "reuse_detected"
	ReasonUserBanned   Reason = "user_banned"
	ReasonDeviceLogout Reason = "device_logout"
)

// Entry is a revoked refresh token, identified by the SHA-256 of its value.
// ExpiresAt is the token's own expiry; after it the entry is redundant and may be swept.
type Entry struct {
	TokenHash  string
	UserID     string
	Reason     Reason
	RecordedAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the underlying token can no longer verify at now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Validate validates the entry for persistence.
func (e *Entry) Validate() error {
	if e.TokenHash == "" {
		return errors.New("token hash is required")
	}
	if e.UserID == "" {
		return errors.New("user id is required")
	}
	if e.Reason == "" {
		return errors.New("reason is required")
	}
	if e.ExpiresAt.IsZero() {
		return errors.New("expires_at is required")
	}
	return nil
}
