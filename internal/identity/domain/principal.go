package domain

import (
	"time"

	userdomain "blogger-platform/backend/internal/user/domain"
)

// Principal is the caller of a request: an authenticated, non-banned user or the anonymous caller.
// The zero value is anonymous.
type Principal struct {
	UserID   string
	Login    string
	Email    string
	Role     userdomain.Role
	IsBanned bool
}

// Anonymous returns the anonymous principal.
func Anonymous() Principal { return Principal{} }

// PrincipalFromUser builds a principal from the user read model.
func PrincipalFromUser(u *userdomain.User) Principal {
	if u == nil {
		return Anonymous()
	}
	return Principal{
		UserID:   u.ID,
		Login:    u.Login,
		Email:    u.Email,
		Role:     u.Role,
		IsBanned: u.Ban.IsBanned,
	}
}

// IsAnonymous reports whether no user is authenticated.
func (p Principal) IsAnonymous() bool { return p.UserID == "" }

// IsSuperAdmin reports whether the principal holds the super-admin role.
func (p Principal) IsSuperAdmin() bool {
	return !p.IsAnonymous() && p.Role == userdomain.RoleSuperAdmin
}

// CredentialPair is what login and refresh hand back to the client.
type CredentialPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UserID           string
	DeviceID         string
}

// Device is the client-facing view of one active session.
type Device struct {
	DeviceID       string
	IP             string
	Title          string
	LastActiveDate time.Time
}

// ClientInfo describes where a login or refresh came from.
type ClientInfo struct {
	IP    string
	Title string // user-agent label
}
