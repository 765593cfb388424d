package service

import (
	"context"
	"sort"
	"sync"
	"time"

	revocationdomain "blogger-platform/backend/internal/revocation/domain"
	sessiondomain "blogger-platform/backend/internal/session/domain"
	sessionrepo "blogger-platform/backend/internal/session/repository"
	"blogger-platform/backend/internal/telemetry"
	userdomain "blogger-platform/backend/internal/user/domain"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*userdomain.User
	err   error
}

func newMemUsers(users ...*userdomain.User) *memUsers {
	m := &memUsers{users: make(map[string]*userdomain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByLoginOrEmail(_ context.Context, loginOrEmail string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Login == loginOrEmail || u.Email == loginOrEmail {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) ban(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].Ban.IsBanned = true
}

type memRevocations struct {
	mu      sync.Mutex
	entries map[string]*revocationdomain.Entry
	err     error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{entries: make(map[string]*revocationdomain.Entry)}
}

func (m *memRevocations) IsRevoked(_ context.Context, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.entries[tokenHash]
	return ok, nil
}

func (m *memRevocations) add(e *revocationdomain.Entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.TokenHash]; ok {
		return false
	}
	cp := *e
	m.entries[e.TokenHash] = &cp
	return true
}

func (m *memRevocations) reasonOf(tokenHash string) revocationdomain.Reason {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[tokenHash]; ok {
		return e.Reason
	}
	return ""
}

// memSessions mirrors the Postgres repository: upsert by (user, title), and rotation/end that
// record the consumed token in the shared revocation store.
type memSessions struct {
	mu          sync.Mutex
	byDevice    map[string]*sessiondomain.Session
	revocations *memRevocations
	err         error
}

func newMemSessions(revocations *memRevocations) *memSessions {
	return &memSessions{byDevice: make(map[string]*sessiondomain.Session), revocations: revocations}
}

func (m *memSessions) Upsert(_ context.Context, s *sessiondomain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for id, existing := range m.byDevice {
		if existing.UserID == s.UserID && existing.Title == s.Title {
			delete(m.byDevice, id)
		}
	}
	cp := *s
	m.byDevice[s.DeviceID] = &cp
	return nil
}

func (m *memSessions) GetByDeviceID(_ context.Context, deviceID string) (*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.byDevice[deviceID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) ListActiveByUser(_ context.Context, userID string, now time.Time) ([]*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*sessiondomain.Session
	for _, s := range m.byDevice {
		if s.UserID == userID && s.Active(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActiveDate.After(out[j].LastActiveDate) })
	return out, nil
}

func (m *memSessions) Rotate(_ context.Context, s *sessiondomain.Session, consumed *revocationdomain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	existing, ok := m.byDevice[s.DeviceID]
	if !ok || existing.UserID != s.UserID {
		return sessionrepo.ErrSessionNotFound
	}
	if !m.revocations.add(consumed) {
		return revocationdomain.ErrAlreadyRevoked
	}
	existing.LastActiveDate = s.LastActiveDate
	existing.ExpirationDate = s.ExpirationDate
	if s.IP != "" {
		existing.IP = s.IP
	}
	return nil
}

func (m *memSessions) End(_ context.Context, userID, deviceID string, consumed *revocationdomain.Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	m.revocations.add(consumed)
	s, ok := m.byDevice[deviceID]
	if !ok || s.UserID != userID {
		return false, nil
	}
	delete(m.byDevice, deviceID)
	return true, nil
}

func (m *memSessions) DeleteByDevice(_ context.Context, userID, deviceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	s, ok := m.byDevice[deviceID]
	if !ok || s.UserID != userID {
		return false, nil
	}
	delete(m.byDevice, deviceID)
	return true, nil
}

func (m *memSessions) DeleteAllExcept(_ context.Context, userID, keepDeviceID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for id, s := range m.byDevice {
		if s.UserID == userID && id != keepDeviceID {
			delete(m.byDevice, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) DeleteAllByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for id, s := range m.byDevice {
		if s.UserID == userID {
			delete(m.byDevice, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) countFor(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.byDevice {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingAudit) LogEvent(_ context.Context, _, _, action, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *recordingAudit) has(action string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.actions {
		if a == action {
			return true
		}
	}
	return false
}

type chanEmitter struct {
	events chan *telemetry.Event
}

func newChanEmitter() *chanEmitter {
	return &chanEmitter{events: make(chan *telemetry.Event, 64)}
}

func (c *chanEmitter) Emit(_ context.Context, ev *telemetry.Event) error {
	c.events <- ev
	return nil
}

// waitFor drains events until one of type want arrives or the timeout elapses.
func (c *chanEmitter) waitFor(want telemetry.EventType) *telemetry.Event {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.events:
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			return nil
		}
	}
}
