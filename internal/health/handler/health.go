package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger is used for readiness checks (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is used for readiness checks of the authorization engine.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker reports readiness from the database and the authorization engine. A nil dependency is skipped.
type Checker struct {
	pinger        Pinger
	policyChecker PolicyChecker
	timeout       time.Duration
}

// NewChecker returns a Checker. pinger and policyChecker may be nil.
func NewChecker(pinger Pinger, policyChecker PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policyChecker: policyChecker, timeout: 2 * time.Second}
}

// Check returns nil when every configured dependency is healthy.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	var errs []error
	if c.pinger != nil {
		if err := c.pinger.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if c.policyChecker != nil {
		if err := c.policyChecker.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("policy engine: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Status maps the current check result to a gRPC serving status.
func (c *Checker) Status(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	if err := c.Check(ctx); err != nil {
		log.Printf("health: not serving: %v", err)
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

// Watch refreshes the overall status of hs every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, hs *health.Server, interval time.Duration) {
	hs.SetServingStatus("", c.Status(ctx))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			hs.SetServingStatus("", c.Status(ctx))
		}
	}
}
