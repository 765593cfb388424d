package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics returns middleware that records request count and latency per route pattern and status
// through the global OTel meter provider. Raw paths are never used as attributes, so device ids
// in URLs do not blow up cardinality.
func Metrics() func(http.Handler) http.Handler {
	meter := otel.Meter("blogger-platform/http")
	requests, _ := meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests by route and status."))
	duration, _ := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request latency."), metric.WithUnit("ms"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.status_code", strconv.Itoa(status)),
			)
			if requests != nil {
				requests.Add(r.Context(), 1, attrs)
			}
			if duration != nil {
				duration.Record(r.Context(), float64(time.Since(start).Microseconds())/1000, attrs)
			}
		})
	}
}
