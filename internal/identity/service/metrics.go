package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "blogger-platform/identity"

type authMetrics struct {
	logins         metric.Int64Counter
	refreshes      metric.Int64Counter
	sessionsEnded  metric.Int64Counter
	authentication metric.Int64Counter
}

func newAuthMetrics() *authMetrics {
	m := otel.Meter(meterName)
	return &authMetrics{
		logins:         counter(m, "identity.logins", "Login attempts by result."),
		refreshes:      counter(m, "identity.refreshes", "Refresh attempts by result."),
		sessionsEnded:  counter(m, "identity.sessions.ended", "Device sessions removed by logout, revoke, or ban."),
		authentication: counter(m, "identity.authentications", "Access token evaluations by result."),
	}
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

func record(ctx context.Context, c metric.Int64Counter, n int64, key, value string) {
	if n <= 0 {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attribute.String(key, value)))
}
