package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/observability"
	"github.com/eraverse/sales-admin-service/internal/repository"
	"github.com/eraverse/sales-admin-service/internal/security"
)

var (
	// ErrInvalidCredentials is the uniform login failure. Unknown username,
	// deactivated account and wrong password all collapse into it so the
	// response never leaks which part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLoginThrottled is returned before credentials are even checked
	// when the client has burned through its failure budget.
	ErrLoginThrottled = errors.New("too many failed login attempts")

	ErrNotAuthenticated       = errors.New("not authenticated")
	ErrHijackSuspected        = errors.New("session fingerprint mismatch")
	ErrSessionExpiredIdle     = errors.New("session idle timeout exceeded")
	ErrSessionExpiredAbsolute = errors.New("session absolute lifetime exceeded")

	// ErrForbidden means the session is alive and valid but the role is
	// insufficient. It is the one validation failure that keeps the
	// session intact.
	ErrForbidden = errors.New("insufficient role")

	ErrTokenInvalid       = errors.New("remember token rejected")
	ErrTokenForeignDevice = errors.New("remember token from another device")
)

// AuthService is the gatekeeper for everything behind the admin panel:
// credential login, per-request session validation with hijack detection
// and dual timeouts, and stateless remember-me restore.
type AuthService struct {
	users    repository.UserRepository
	store    SessionStore
	guard    LoginGuard
	remember *security.RememberTokenizer

	idleTimeout     time.Duration
	absoluteTimeout time.Duration
	regenInterval   time.Duration

	now func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	store SessionStore,
	guard LoginGuard,
	remember *security.RememberTokenizer,
	idleTimeout, absoluteTimeout, regenInterval time.Duration,
) *AuthService {
	return &AuthService{
		users:           users,
		store:           store,
		guard:           guard,
		remember:        remember,
		idleTimeout:     idleTimeout,
		absoluteTimeout: absoluteTimeout,
		regenInterval:   regenInterval,
		now:             time.Now,
	}
}

// WithClock swaps the time source for deterministic tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) newSession(userID uint, username, role, userAgent, ip string) *domain.Session {
	now := s.now()
	return &domain.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		Username:    username,
		Role:        strings.ToLower(role),
		Fingerprint: security.Fingerprint(userAgent, ip),
		CreatedAt:   now,
		LastSeenAt:  now,
		LastRegenAt: now,
	}
}

// Login verifies the credentials and, on success, mints a brand new session
// bound to the caller's device fingerprint. The full absolute window is the
// store TTL; the stricter idle and absolute checks happen on validation.
func (s *AuthService) Login(ctx context.Context, username, password, userAgent, ip string) (*domain.Session, error) {
	if s.guard != nil {
		allowed, err := s.guard.Allow(ctx, ip)
		if err != nil {
			return nil, err
		}
		if !allowed {
			observability.RecordLoginAttempt(ctx, "throttled")
			return nil, ErrLoginThrottled
		}
	}

	user, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.noteLoginFailure(ctx, ip)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !security.VerifyPassword(user.PassHash, password) {
		s.noteLoginFailure(ctx, ip)
		return nil, ErrInvalidCredentials
	}

	sess := s.newSession(user.ID, user.Username, user.Role, userAgent, ip)
	if err := s.store.Save(ctx, sess, s.absoluteTimeout); err != nil {
		return nil, err
	}
	if err := s.users.TouchLastLogin(user.ID, s.now()); err != nil {
		return nil, err
	}
	if s.guard != nil {
		if err := s.guard.Reset(ctx, ip); err != nil {
			return nil, err
		}
	}
	observability.RecordLoginAttempt(ctx, "success")
	return sess, nil
}

func (s *AuthService) noteLoginFailure(ctx context.Context, ip string) {
	observability.RecordLoginAttempt(ctx, "failure")
	if s.guard != nil {
		// A failed increment must not mask the credential error.
		_ = s.guard.RecordFailure(ctx, ip)
	}
}

// Validate runs the per-request checks in a fixed order: existence,
// identity, fingerprint, absolute timeout, idle timeout, role, and finally
// ID rotation plus the activity touch. Every failure except ErrForbidden
// destroys the session; Forbidden happens before the activity touch, so a
// denied request does not extend the idle window.
//
// The returned session carries the current ID, which differs from the input
// after a rotation; the caller must re-issue the cookie from it.
func (s *AuthService) Validate(ctx context.Context, sessionID, userAgent, ip string, requiredRoles ...string) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			observability.RecordSessionValidation(ctx, "missing")
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}

	now := s.now()

	if !sess.Authenticated() {
		s.teardown(ctx, sess.ID)
		observability.RecordSessionValidation(ctx, "unauthenticated")
		return nil, ErrNotAuthenticated
	}
	if !security.FingerprintEqual(sess.Fingerprint, security.Fingerprint(userAgent, ip)) {
		s.teardown(ctx, sess.ID)
		observability.RecordSessionValidation(ctx, "hijack_suspected")
		return nil, ErrHijackSuspected
	}
	if now.Sub(sess.CreatedAt) > s.absoluteTimeout {
		s.teardown(ctx, sess.ID)
		observability.RecordSessionValidation(ctx, "absolute_expired")
		return nil, ErrSessionExpiredAbsolute
	}
	if now.Sub(sess.LastSeenAt) > s.idleTimeout {
		s.teardown(ctx, sess.ID)
		observability.RecordSessionValidation(ctx, "idle_expired")
		return nil, ErrSessionExpiredIdle
	}
	if len(requiredRoles) > 0 && !roleAllowed(sess.Role, requiredRoles) {
		observability.RecordSessionValidation(ctx, "forbidden")
		return nil, ErrForbidden
	}

	oldID := ""
	if now.Sub(sess.LastRegenAt) > s.regenInterval {
		oldID = sess.ID
		sess.ID = uuid.NewString()
		sess.LastRegenAt = now
	}
	sess.LastSeenAt = now

	// The store TTL tracks the remaining absolute window so abandoned
	// sessions age out on their own.
	remaining := s.absoluteTimeout - now.Sub(sess.CreatedAt)
	if err := s.store.Save(ctx, sess, remaining); err != nil {
		return nil, err
	}
	if oldID != "" {
		if err := s.store.Delete(ctx, oldID); err != nil {
			return nil, fmt.Errorf("drop rotated session: %w", err)
		}
	}
	observability.RecordSessionValidation(ctx, "success")
	return sess, nil
}

func roleAllowed(role string, allowed []string) bool {
	for _, r := range allowed {
		if strings.EqualFold(role, r) {
			return true
		}
	}
	return false
}

func (s *AuthService) teardown(ctx context.Context, sessionID string) {
	// Best effort; the validation verdict stands either way.
	_ = s.store.Delete(ctx, sessionID)
}

// Logout destroys the session. Logging out an already-gone session is not
// an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.Delete(ctx, sessionID)
}

// RememberLifetime exposes the remember token validity so the HTTP layer
// can size the cookie's Max-Age to match.
func (s *AuthService) RememberLifetime() time.Duration {
	return s.remember.Lifetime()
}

// RememberToken mints the persistent credential for the session's identity,
// bound to the requesting device.
func (s *AuthService) RememberToken(sess *domain.Session, userAgent string) (string, error) {
	token, _, err := s.remember.Issue(sess.UserID, sess.Username, sess.Role, userAgent)
	return token, err
}

// RestoreFromRemember turns a valid remember token into a fresh session,
// exactly as if the user had just logged in, and rotates the token so its
// expiry slides forward. The identity comes from the signed claims alone.
func (s *AuthService) RestoreFromRemember(ctx context.Context, token, userAgent, ip string) (*domain.Session, string, error) {
	claims, err := s.remember.Parse(token, userAgent)
	if err != nil {
		if errors.Is(err, security.ErrRememberForeignDevice) {
			observability.RecordRememberRestore(ctx, "foreign_device")
			return nil, "", ErrTokenForeignDevice
		}
		observability.RecordRememberRestore(ctx, "invalid")
		return nil, "", ErrTokenInvalid
	}

	sess := s.newSession(claims.UserID, claims.Username, claims.Role, userAgent, ip)
	if err := s.store.Save(ctx, sess, s.absoluteTimeout); err != nil {
		return nil, "", err
	}
	rotated, _, err := s.remember.Issue(claims.UserID, claims.Username, claims.Role, userAgent)
	if err != nil {
		return nil, "", err
	}
	observability.RecordRememberRestore(ctx, "success")
	return sess, rotated, nil
}
