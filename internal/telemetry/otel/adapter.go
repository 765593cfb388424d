package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"blogger-platform/backend/internal/telemetry"
)

const instrumentationName = "blogger-platform/identity"

// NewEventEmitter returns an EventEmitter that writes security events as OTel log records.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(instrumentationName)}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *telemetry.Event) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts event to a log record whose body is the event type and whose attributes carry the ids.
func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if event == nil {
		return nil
	}
	e.logger.Emit(ctx, toRecord(event))
	return nil
}

func toRecord(event *telemetry.Event) otellog.Record {
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(severityOf(event.Type))
	rec.SetBody(otellog.StringValue(string(event.Type)))
	rec.AddAttributes(otellog.String("event_type", string(event.Type)))
	addIfSet := func(key, value string) {
		if value != "" {
			rec.AddAttributes(otellog.String(key, value))
		}
	}
	addIfSet("user_id", event.UserID)
	addIfSet("device_id", event.DeviceID)
	addIfSet("client_ip", event.IP)
	addIfSet("token_hash", event.TokenHash)
	addIfSet("reason", event.Reason)
	for k, v := range event.Metadata {
		addIfSet("meta."+k, v)
	}
	return rec
}

func severityOf(t telemetry.EventType) otellog.Severity {
	switch t {
	case telemetry.EventRefreshReuse:
		return otellog.SeverityWarn
	case telemetry.EventLoginFailed, telemetry.EventRefreshRejected, telemetry.EventBanCascade:
		return otellog.SeverityInfo2
	default:
		return otellog.SeverityInfo
	}
}
