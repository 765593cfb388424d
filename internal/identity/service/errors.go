package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the identity core; the HTTP layer maps them to status codes.
var (
	// ErrUnauthorized means no usable credential. Refresh and logout wrap the specific cause with it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller is authenticated but not entitled to the target.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the target device session does not exist or has expired.
	ErrNotFound = errors.New("not found")
	// ErrRevokedToken means the credential was revoked or its session has ended.
	ErrRevokedToken = errors.New("revoked token")
	// ErrBannedActor means the user is banned.
	ErrBannedActor = errors.New("banned actor")
	// ErrInvalidCredentials means login or password did not match an active user.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInfrastructure marks storage or other dependency failures. Never collapsed into a decision.
	ErrInfrastructure = errors.New("infrastructure failure")
)

// InfraError wraps a dependency failure with the operation that hit it.
// errors.Is matches both ErrInfrastructure and the cause.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() []error {
	return []error{ErrInfrastructure, e.Err}
}

func infra(op string, err error) error {
	return &InfraError{Op: op, Err: err}
}

// unauthorized wraps reason so errors.Is matches both ErrUnauthorized and the reason
// (e.g. security.ErrExpiredToken, ErrRevokedToken, ErrBannedActor).
func unauthorized(reason error) error {
	if reason == nil {
		return ErrUnauthorized
	}
	return fmt.Errorf("%w: %w", ErrUnauthorized, reason)
}
