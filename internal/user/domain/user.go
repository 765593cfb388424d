package domain

import (
	"errors"
	"time"
)

// Role is a user's platform-wide role.
type Role string

const (
	RoleUser       Role = "user"
	RoleSuperAdmin Role = "super_admin"
)

// BanStatus is the ban state maintained by user management. The identity core only reads it.
type BanStatus struct {
	IsBanned  bool
	BanDate   *time.Time // nil while not banned
	BanReason string
}

// User is the read model of a platform account.
type User struct {
	ID           string
	Login        string
	Email        string
	PasswordHash string
	Role         Role
	Ban          BanStatus
	CreatedAt    time.Time
}

// IsSuperAdmin reports whether the user holds the super-admin role.
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role == RoleSuperAdmin
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Login == "" {
		return errors.New("login is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Role != RoleUser && u.Role != RoleSuperAdmin {
		return errors.New("role must be user or super_admin")
	}
	return nil
}
