package domain

import "time"

// Actions recorded by the identity core.
const (
	ActionLogin           = "login"
	ActionLoginFailed     = "login_failed"
	ActionRefresh         = "refresh"
	ActionRefreshReuse    = "refresh_reuse"
	ActionLogout          = "logout"
	ActionDeviceRevoked   = "device_revoked"
	ActionOtherDevicesOut = "other_devices_revoked"
	ActionBanCascade      = "ban_cascade"
)

// AuditLog is one persisted security audit event. UserID is empty when the actor is unknown.
type AuditLog struct {
	ID        string
	UserID    string
	DeviceID  string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
