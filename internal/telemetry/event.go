package telemetry

import "time"

// EventType names a security-relevant transition in the identity core.
type EventType string

const (
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginFailed     EventType = "login_failed"
	EventTokenRotated    EventType = "token_rotated"
	EventRefreshRejected EventType = "refresh_rejected"
	EventRefreshReuse    EventType = "refresh_reuse_detected"
	EventLogout          EventType = "logout"
	EventDeviceRevoked   EventType = "device_revoked"
	EventOtherDevicesOut EventType = "other_devices_revoked"
	EventBanCascade      EventType = "ban_cascade"
	EventSweepCompleted  EventType = "sweep_completed"
)

// Event is one security event. It never carries raw tokens; TokenHash is the SHA-256 of the token when relevant.
type Event struct {
	Type      EventType         `json:"type"`
	UserID    string            `json:"userId,omitempty"`
	DeviceID  string            `json:"deviceId,omitempty"`
	IP        string            `json:"ip,omitempty"`
	TokenHash string            `json:"tokenHash,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
