package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memTable holds rows keyed by id with an expiry, like the sessions and revocation tables.
type memTable struct {
	mu    sync.Mutex
	rows  map[string]time.Time
	err   error
	calls int
}

func newMemTable(rows map[string]time.Time) *memTable {
	return &memTable{rows: rows}
}

func (m *memTable) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for id, exp := range m.rows {
		if !exp.After(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memTable) ids() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.rows))
	for id := range m.rows {
		out[id] = true
	}
	return out
}

func (m *memTable) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSweepOnce_PurgesOnlyExpired(t *testing.T) {
	sessions := newMemTable(map[string]time.Time{
		"expired":  now.Add(-time.Hour),
		"boundary": now,
		"live":     now.Add(time.Hour),
	})
	revs := newMemTable(map[string]time.Time{
		"old":   now.Add(-time.Minute),
		"fresh": now.Add(time.Minute),
	})
	s := New(sessions, revs, nil, time.Minute).WithClock(func() time.Time { return now })

	res, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if res.Sessions != 2 || res.Revocations != 1 {
		t.Errorf("result = %+v, want 2 sessions and 1 revocation", res)
	}
	if ids := sessions.ids(); len(ids) != 1 || !ids["live"] {
		t.Errorf("sessions left = %v, want [live]", ids)
	}
	if ids := revs.ids(); len(ids) != 1 || !ids["fresh"] {
		t.Errorf("revocations left = %v, want [fresh]", ids)
	}
}

func TestSweepOnce_Idempotent(t *testing.T) {
	sessions := newMemTable(map[string]time.Time{"a": now.Add(-time.Hour), "b": now.Add(time.Hour)})
	revs := newMemTable(map[string]time.Time{"x": now.Add(-time.Hour), "y": now.Add(time.Hour)})
	s := New(sessions, revs, nil, time.Minute).WithClock(func() time.Time { return now })

	if _, err := s.SweepOnce(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	afterFirstSessions, afterFirstRevs := sessions.ids(), revs.ids()

	res, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if res.Sessions != 0 || res.Revocations != 0 {
		t.Errorf("second sweep removed %+v, want nothing", res)
	}
	if got := sessions.ids(); len(got) != len(afterFirstSessions) || !got["b"] {
		t.Errorf("sessions changed on second sweep: %v", got)
	}
	if got := revs.ids(); len(got) != len(afterFirstRevs) || !got["y"] {
		t.Errorf("revocations changed on second sweep: %v", got)
	}
}

func TestSweepOnce_ErrorInOneTableStillSweepsOther(t *testing.T) {
	dbErr := errors.New("deadlock detected")
	sessions := newMemTable(map[string]time.Time{"a": now.Add(-time.Hour)})
	sessions.err = dbErr
	revs := newMemTable(map[string]time.Time{"x": now.Add(-time.Hour)})
	s := New(sessions, revs, nil, time.Minute).WithClock(func() time.Time { return now })

	res, err := s.SweepOnce(context.Background())
	if !errors.Is(err, dbErr) {
		t.Fatalf("err = %v, want wrapping %v", err, dbErr)
	}
	if res.Revocations != 1 {
		t.Errorf("revocations purged = %d, want 1", res.Revocations)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	sessions := newMemTable(map[string]time.Time{})
	revs := newMemTable(map[string]time.Time{})
	s := New(sessions, revs, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sessions.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNew_DefaultsInterval(t *testing.T) {
	s := New(newMemTable(nil), newMemTable(nil), nil, 0)
	if s.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", s.interval)
	}
}
