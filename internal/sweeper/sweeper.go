// Package sweeper purges expired device sessions and redundant revocation entries on a fixed interval.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"blogger-platform/backend/internal/telemetry"
)

// Purger deletes rows that expired at or before now with a single conditional delete.
type Purger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Result counts the rows removed by one sweep.
type Result struct {
	Sessions    int64
	Revocations int64
}

// Sweeper runs the expiry purge. Both deletes are keyed by expiry comparison only, so a sweep is
// idempotent and never races a concurrent rotation into deleting a freshly extended session.
type Sweeper struct {
	sessions    Purger
	revocations Purger
	events      telemetry.EventEmitter
	interval    time.Duration
	now         func() time.Time
	purged      metric.Int64Counter
}

// New returns a Sweeper. events may be nil.
func New(sessions, revocations Purger, events telemetry.EventEmitter, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	purged, err := otel.Meter("blogger-platform/sweeper").Int64Counter("sweeper.rows.purged",
		metric.WithDescription("Expired rows removed by the sweeper, by table."))
	if err != nil {
		purged = noop.Int64Counter{}
	}
	return &Sweeper{
		sessions:    sessions,
		revocations: revocations,
		events:      events,
		interval:    interval,
		now:         time.Now,
		purged:      purged,
	}
}

// WithClock replaces the wall clock used as the expiry cutoff.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// SweepOnce deletes expired sessions and revocation entries. A failure in one table does not
// skip the other; errors are joined.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	now := s.now().UTC()
	var res Result
	var errs []error

	n, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge sessions: %w", err))
	}
	res.Sessions = n

	n, err = s.revocations.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge revocations: %w", err))
	}
	res.Revocations = n

	s.purged.Add(ctx, res.Sessions, metric.WithAttributes(attribute.String("table", "sessions")))
	s.purged.Add(ctx, res.Revocations, metric.WithAttributes(attribute.String("table", "revocation_entries")))
	if res.Sessions > 0 || res.Revocations > 0 {
		telemetry.EmitAsync(s.events, &telemetry.Event{
			Type: telemetry.EventSweepCompleted,
			Metadata: map[string]string{
				"sessions":    strconv.FormatInt(res.Sessions, 10),
				"revocations": strconv.FormatInt(res.Revocations, 10),
			},
			CreatedAt: now,
		})
	}
	return res, errors.Join(errs...)
}

// Run sweeps immediately and then on every interval until ctx is cancelled.
// Sweep errors are logged and do not stop the loop.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("sweeper: running every %s", s.interval)
	for {
		res, err := s.SweepOnce(ctx)
		if err != nil && ctx.Err() == nil {
			log.Printf("sweeper: %v", err)
		} else if res.Sessions > 0 || res.Revocations > 0 {
			log.Printf("sweeper: purged %d session(s) and %d revocation entries", res.Sessions, res.Revocations)
		}
		select {
		case <-ctx.Done():
			log.Println("sweeper: stopped")
			return
		case <-ticker.C:
		}
	}
}
