package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"blogger-platform/backend/internal/audit"
	auditdomain "blogger-platform/backend/internal/audit/domain"
	"blogger-platform/backend/internal/identity/domain"
	revocationdomain "blogger-platform/backend/internal/revocation/domain"
	"blogger-platform/backend/internal/security"
	sessiondomain "blogger-platform/backend/internal/session/domain"
	sessionrepo "blogger-platform/backend/internal/session/repository"
	"blogger-platform/backend/internal/telemetry"
	userdomain "blogger-platform/backend/internal/user/domain"
)

const (
	maxTitleLength = 255
	unknownTitle   = "unknown device"
)

// UserRepo is the minimal user repository needed by the identity core.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByLoginOrEmail(ctx context.Context, loginOrEmail string) (*userdomain.User, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Upsert(ctx context.Context, s *sessiondomain.Session) error
	GetByDeviceID(ctx context.Context, deviceID string) (*sessiondomain.Session, error)
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*sessiondomain.Session, error)
	Rotate(ctx context.Context, s *sessiondomain.Session, consumed *revocationdomain.Entry) error
	End(ctx context.Context, userID, deviceID string, consumed *revocationdomain.Entry) (bool, error)
	DeleteByDevice(ctx context.Context, userID, deviceID string) (bool, error)
	DeleteAllExcept(ctx context.Context, userID, keepDeviceID string) (int64, error)
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

// RevocationRepo is the minimal revocation repository needed by the identity core.
type RevocationRepo interface {
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// AuthService coordinates the device session lifecycle: login, refresh rotation, logout,
// per-device revoke, and the ban cascade.
type AuthService struct {
	users       UserRepo
	sessions    SessionRepo
	revocations RevocationRepo
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	audit       audit.AuditLogger
	events      telemetry.EventEmitter
	metrics     *authMetrics
	now         func() time.Time
	newDeviceID func() string
}

// NewAuthService returns an AuthService with the given dependencies.
// auditLogger and events may be nil.
func NewAuthService(
	users UserRepo,
	sessions SessionRepo,
	revocations RevocationRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditLogger audit.AuditLogger,
	events telemetry.EventEmitter,
) *AuthService {
	return &AuthService{
		users:       users,
		sessions:    sessions,
		revocations: revocations,
		hasher:      hasher,
		tokens:      tokens,
		audit:       auditLogger,
		events:      events,
		metrics:     newAuthMetrics(),
		now:         time.Now,
		newDeviceID: func() string { return uuid.New().String() },
	}
}

// WithClock replaces the wall clock used for token timestamps and expiry checks.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// LoginWithPassword verifies loginOrEmail and password, then performs Login.
// Unknown users, wrong passwords, and banned users all yield ErrInvalidCredentials.
func (s *AuthService) LoginWithPassword(ctx context.Context, loginOrEmail, password string, client domain.ClientInfo) (*domain.CredentialPair, error) {
	loginOrEmail = strings.TrimSpace(loginOrEmail)
	if loginOrEmail == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByLoginOrEmail(ctx, loginOrEmail)
	if err != nil {
		return nil, infra("load user", err)
	}
	if user == nil {
		s.hasher.CompareDummy([]byte(password))
		s.loginFailed(ctx, "", "unknown_user", client)
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash == "" || s.hasher.Compare(user.PasswordHash, []byte(password)) != nil {
		s.loginFailed(ctx, user.ID, "bad_password", client)
		return nil, ErrInvalidCredentials
	}
	if user.Ban.IsBanned {
		s.loginFailed(ctx, user.ID, "banned", client)
		return nil, ErrInvalidCredentials
	}
	return s.Login(ctx, user, client)
}

// Login issues a credential pair for an already verified user on a new device and upserts the
// session keyed by (user, title). A previous session with the same title is replaced.
func (s *AuthService) Login(ctx context.Context, user *userdomain.User, client domain.ClientInfo) (*domain.CredentialPair, error) {
	if user == nil || user.ID == "" {
		return nil, ErrUnauthorized
	}
	if user.Ban.IsBanned {
		s.loginFailed(ctx, user.ID, "banned", client)
		return nil, ErrBannedActor
	}
	now := s.now().UTC()
	deviceID := s.newDeviceID()
	refresh, err := s.tokens.IssueRefresh(user.ID, deviceID, now)
	if err != nil {
		return nil, infra("issue refresh token", err)
	}
	access, err := s.tokens.IssueAccess(user.ID, now)
	if err != nil {
		return nil, infra("issue access token", err)
	}
	sess := &sessiondomain.Session{
		UserID:         user.ID,
		DeviceID:       deviceID,
		IP:             client.IP,
		Title:          normalizeTitle(client.Title),
		LastActiveDate: refresh.IssuedAt,
		ExpirationDate: refresh.ExpiresAt,
	}
	if err := s.sessions.Upsert(ctx, sess); err != nil {
		return nil, infra("upsert session", err)
	}

	record(ctx, s.metrics.logins, 1, "result", "success")
	s.auditEvent(ctx, user.ID, deviceID, auditdomain.ActionLogin, "title="+sess.Title)
	s.emit(&telemetry.Event{Type: telemetry.EventLoginSucceeded, UserID: user.ID, DeviceID: deviceID, IP: client.IP,
		Metadata: map[string]string{"title": sess.Title}})

	return &domain.CredentialPair{
		AccessToken:      access.Value,
		RefreshToken:     refresh.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
		UserID:           user.ID,
		DeviceID:         deviceID,
	}, nil
}

// Refresh consumes refreshToken and returns a new pair for the same device. The consumed token is
// revoked in the same transaction that advances the session, so presenting it again always fails.
// Every rejection wraps ErrUnauthorized; infrastructure failures are returned as *InfraError.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client domain.ClientInfo) (*domain.CredentialPair, error) {
	now := s.now().UTC()
	claims, err := s.tokens.ValidateRefresh(refreshToken, now)
	if err != nil {
		s.refreshRejected(ctx, refreshToken, err, client)
		return nil, unauthorized(err)
	}
	userID, deviceID := claims.UserID(), claims.DeviceID
	tokenHash := security.HashToken(refreshToken)

	revoked, err := s.revocations.IsRevoked(ctx, tokenHash)
	if err != nil {
		return nil, infra("check revocation", err)
	}
	if revoked {
		s.refreshReused(ctx, userID, deviceID, tokenHash, client)
		return nil, unauthorized(ErrRevokedToken)
	}

	sess, err := s.sessions.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, infra("load session", err)
	}
	if !sess.OwnedBy(userID) || !sess.Active(now) {
		record(ctx, s.metrics.refreshes, 1, "result", "session_ended")
		return nil, unauthorized(ErrRevokedToken)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, infra("load user", err)
	}
	if user == nil {
		record(ctx, s.metrics.refreshes, 1, "result", "unknown_user")
		return nil, ErrUnauthorized
	}
	if user.Ban.IsBanned {
		record(ctx, s.metrics.refreshes, 1, "result", "banned")
		return nil, unauthorized(ErrBannedActor)
	}

	refresh, err := s.tokens.IssueRefresh(userID, deviceID, now)
	if err != nil {
		return nil, infra("issue refresh token", err)
	}
	access, err := s.tokens.IssueAccess(userID, now)
	if err != nil {
		return nil, infra("issue access token", err)
	}
	rotated := &sessiondomain.Session{
		UserID:         userID,
		DeviceID:       deviceID,
		IP:             client.IP,
		Title:          sess.Title,
		LastActiveDate: refresh.IssuedAt,
		ExpirationDate: refresh.ExpiresAt,
	}
	consumed := &revocationdomain.Entry{
		TokenHash:  tokenHash,
		UserID:     userID,
		Reason:     revocationdomain.ReasonRotated,
		RecordedAt: now,
		ExpiresAt:  claims.ExpiresAt.Time,
	}
	switch err := s.sessions.Rotate(ctx, rotated, consumed); {
	case errors.Is(err, revocationdomain.ErrAlreadyRevoked):
		s.refreshReused(ctx, userID, deviceID, tokenHash, client)
		return nil, unauthorized(ErrRevokedToken)
	case errors.Is(err, sessionrepo.ErrSessionNotFound):
		record(ctx, s.metrics.refreshes, 1, "result", "session_ended")
		return nil, unauthorized(ErrRevokedToken)
	case err != nil:
		return nil, infra("rotate session", err)
	}

	record(ctx, s.metrics.refreshes, 1, "result", "success")
	s.auditEvent(ctx, userID, deviceID, auditdomain.ActionRefresh, "")
	s.emit(&telemetry.Event{Type: telemetry.EventTokenRotated, UserID: userID, DeviceID: deviceID, IP: client.IP, TokenHash: tokenHash})

	return &domain.CredentialPair{
		AccessToken:      access.Value,
		RefreshToken:     refresh.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
		UserID:           userID,
		DeviceID:         deviceID,
	}, nil
}

// Logout revokes refreshToken and deletes its device session. A session that is already gone is
// not an error. An unusable or already revoked token yields an error wrapping ErrUnauthorized.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	now := s.now().UTC()
	claims, err := s.tokens.ValidateRefresh(refreshToken, now)
	if err != nil {
		return unauthorized(err)
	}
	tokenHash := security.HashToken(refreshToken)
	revoked, err := s.revocations.IsRevoked(ctx, tokenHash)
	if err != nil {
		return infra("check revocation", err)
	}
	if revoked {
		return unauthorized(ErrRevokedToken)
	}
	userID, deviceID := claims.UserID(), claims.DeviceID
	deleted, err := s.sessions.End(ctx, userID, deviceID, &revocationdomain.Entry{
		TokenHash:  tokenHash,
		UserID:     userID,
		Reason:     revocationdomain.ReasonLogout,
		RecordedAt: now,
		ExpiresAt:  claims.ExpiresAt.Time,
	})
	if err != nil {
		return infra("end session", err)
	}
	if deleted {
		record(ctx, s.metrics.sessionsEnded, 1, "cause", "logout")
	}
	s.auditEvent(ctx, userID, deviceID, auditdomain.ActionLogout, "")
	s.emit(&telemetry.Event{Type: telemetry.EventLogout, UserID: userID, DeviceID: deviceID, TokenHash: tokenHash})
	return nil
}

// ResolveDevice authenticates the caller of the device-management routes by their refresh token.
// The token must verify, must not be revoked, and its session must still be active for a non-banned user.
func (s *AuthService) ResolveDevice(ctx context.Context, refreshToken string) (domain.Principal, string, error) {
	now := s.now().UTC()
	claims, err := s.tokens.ValidateRefresh(refreshToken, now)
	if err != nil {
		return domain.Anonymous(), "", unauthorized(err)
	}
	revoked, err := s.revocations.IsRevoked(ctx, security.HashToken(refreshToken))
	if err != nil {
		return domain.Anonymous(), "", infra("check revocation", err)
	}
	if revoked {
		return domain.Anonymous(), "", unauthorized(ErrRevokedToken)
	}
	sess, err := s.sessions.GetByDeviceID(ctx, claims.DeviceID)
	if err != nil {
		return domain.Anonymous(), "", infra("load session", err)
	}
	if !sess.OwnedBy(claims.UserID()) || !sess.Active(now) {
		return domain.Anonymous(), "", unauthorized(ErrRevokedToken)
	}
	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		return domain.Anonymous(), "", infra("load user", err)
	}
	if user == nil {
		return domain.Anonymous(), "", ErrUnauthorized
	}
	if user.Ban.IsBanned {
		return domain.Anonymous(), "", unauthorized(ErrBannedActor)
	}
	return domain.PrincipalFromUser(user), claims.DeviceID, nil
}

// ListDevices returns the caller's active sessions, most recently active first.
func (s *AuthService) ListDevices(ctx context.Context, caller domain.Principal) ([]domain.Device, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthorized
	}
	list, err := s.sessions.ListActiveByUser(ctx, caller.UserID, s.now().UTC())
	if err != nil {
		return nil, infra("list sessions", err)
	}
	out := make([]domain.Device, 0, len(list))
	for _, sess := range list {
		out = append(out, domain.Device{
			DeviceID:       sess.DeviceID,
			IP:             sess.IP,
			Title:          sess.Title,
			LastActiveDate: sess.LastActiveDate,
		})
	}
	return out, nil
}

// LogoutDevice deletes one of the caller's device sessions. Returns ErrNotFound when no active session
// has deviceID and ErrForbidden when it belongs to another user.
func (s *AuthService) LogoutDevice(ctx context.Context, caller domain.Principal, deviceID string) error {
	if caller.IsAnonymous() {
		return ErrUnauthorized
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return ErrNotFound
	}
	sess, err := s.sessions.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return infra("load session", err)
	}
	if !sess.Active(s.now().UTC()) {
		return ErrNotFound
	}
	if !sess.OwnedBy(caller.UserID) {
		return ErrForbidden
	}
	deleted, err := s.sessions.DeleteByDevice(ctx, caller.UserID, deviceID)
	if err != nil {
		return infra("delete session", err)
	}
	if !deleted {
		return ErrNotFound
	}
	record(ctx, s.metrics.sessionsEnded, 1, "cause", "device_logout")
	s.auditEvent(ctx, caller.UserID, deviceID, auditdomain.ActionDeviceRevoked, "")
	s.emit(&telemetry.Event{Type: telemetry.EventDeviceRevoked, UserID: caller.UserID, DeviceID: deviceID})
	return nil
}

// LogoutAllOtherDevices deletes every session of the caller except currentDeviceID.
// currentDeviceID must name a live session of the caller: an unknown device is ErrNotFound
// and another user's device is ErrForbidden. Nothing is deleted in either case.
func (s *AuthService) LogoutAllOtherDevices(ctx context.Context, caller domain.Principal, currentDeviceID string) error {
	if caller.IsAnonymous() || currentDeviceID == "" {
		return ErrUnauthorized
	}
	sess, err := s.sessions.GetByDeviceID(ctx, currentDeviceID)
	if err != nil {
		return infra("load session", err)
	}
	if sess == nil {
		return ErrNotFound
	}
	if !sess.OwnedBy(caller.UserID) {
		return ErrForbidden
	}
	n, err := s.sessions.DeleteAllExcept(ctx, caller.UserID, currentDeviceID)
	if err != nil {
		return infra("delete other sessions", err)
	}
	record(ctx, s.metrics.sessionsEnded, n, "cause", "other_devices")
	s.auditEvent(ctx, caller.UserID, currentDeviceID, auditdomain.ActionOtherDevicesOut, "")
	s.emit(&telemetry.Event{Type: telemetry.EventOtherDevicesOut, UserID: caller.UserID, DeviceID: currentDeviceID})
	return nil
}

// OnUserBanned runs the ban cascade: every session of userID is deleted regardless of expiry, so no
// outstanding refresh token can be rotated. Outstanding access tokens stop authenticating because the
// authenticator checks the ban flag on every request.
func (s *AuthService) OnUserBanned(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	n, err := s.sessions.DeleteAllByUser(ctx, userID)
	if err != nil {
		return infra("delete user sessions", err)
	}
	log.Printf("identity: ban cascade for user %s removed %d session(s)", userID, n)
	record(ctx, s.metrics.sessionsEnded, n, "cause", "ban")
	s.auditEvent(ctx, userID, "", auditdomain.ActionBanCascade, "")
	s.emit(&telemetry.Event{Type: telemetry.EventBanCascade, UserID: userID, Reason: string(revocationdomain.ReasonUserBanned)})
	return nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, reason string, client domain.ClientInfo) {
	record(ctx, s.metrics.logins, 1, "result", reason)
	s.auditEvent(ctx, userID, "", auditdomain.ActionLoginFailed, "reason="+reason)
	s.emit(&telemetry.Event{Type: telemetry.EventLoginFailed, UserID: userID, IP: client.IP, Reason: reason})
}

func (s *AuthService) refreshRejected(ctx context.Context, token string, cause error, client domain.ClientInfo) {
	reason := "malformed"
	if errors.Is(cause, security.ErrExpiredToken) {
		reason = "expired"
	}
	record(ctx, s.metrics.refreshes, 1, "result", reason)
	ev := &telemetry.Event{Type: telemetry.EventRefreshRejected, IP: client.IP, Reason: reason}
	// Unverified claims only attribute the event; they never grant anything.
	if peek, err := security.PeekRefreshClaims(token); err == nil {
		ev.Metadata = map[string]string{"unverified_user_id": peek.UserID(), "unverified_device_id": peek.DeviceID}
	}
	s.emit(ev)
}

func (s *AuthService) refreshReused(ctx context.Context, userID, deviceID, tokenHash string, client domain.ClientInfo) {
	log.Printf("identity: refresh token reuse for user %s device %s (hash %s)", userID, deviceID, tokenHash)
	record(ctx, s.metrics.refreshes, 1, "result", "reuse")
	s.auditEvent(ctx, userID, deviceID, auditdomain.ActionRefreshReuse, "token_hash="+tokenHash)
	s.emit(&telemetry.Event{Type: telemetry.EventRefreshReuse, UserID: userID, DeviceID: deviceID, IP: client.IP,
		TokenHash: tokenHash, Reason: string(revocationdomain.ReasonReuse)})
}

func (s *AuthService) auditEvent(ctx context.Context, userID, deviceID, action, metadata string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, userID, deviceID, action, metadata)
	}
}

func (s *AuthService) emit(ev *telemetry.Event) {
	if s.events == nil {
		return
	}
	ev.CreatedAt = s.now().UTC()
	telemetry.EmitAsync(s.events, ev)
}

// normalizeTitle trims the client-supplied title and caps it at maxTitleLength bytes
// without splitting a rune, so the stored value is always valid UTF-8.
func normalizeTitle(title string) string {
	title = strings.TrimSpace(strings.ToValidUTF8(title, ""))
	if title == "" {
		return unknownTitle
	}
	if len(title) > maxTitleLength {
		n := maxTitleLength
		for n > 0 && !utf8.RuneStart(title[n]) {
			n--
		}
		title = strings.TrimSpace(title[:n])
	}
	return title
}
