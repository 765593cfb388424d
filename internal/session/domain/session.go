package domain

import (
	"errors"
	"time"
)

// Session is one logged-in device of a user. DeviceID is embedded in the device's refresh token.
// At most one session exists per (UserID, Title); a new login with the same title replaces it.
type Session struct {
	UserID         string
	DeviceID       string
	IP             string
	Title          string // user-agent label supplied by the client
	LastActiveDate time.Time
	ExpirationDate time.Time
}

// Active reports whether the session has not yet expired at now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.ExpirationDate.After(now)
}

// OwnedBy reports whether the session belongs to userID.
func (s *Session) OwnedBy(userID string) bool {
	return s != nil && userID != "" && s.UserID == userID
}

// Validate validates the session for persistence.
func (s *Session) Validate() error {
	if s.UserID == "" {
		return errors.New("user_id is required")
	}
	if s.DeviceID == "" {
		return errors.New("device_id is required")
	}
	if s.ExpirationDate.IsZero() {
		return errors.New("expiration_date is required")
	}
	if !s.ExpirationDate.After(s.LastActiveDate) {
		return errors.New("expiration_date must be after last_active_date")
	}
	return nil
}
