// Package producer publishes security events to a message broker.
package producer

import "blogger-platform/backend/internal/telemetry"

// Producer emits security events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	telemetry.EventEmitter
	// Close releases resources (e.g. the Kafka writer). Safe to call if already closed.
	Close() error
}
