package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/http/response"
	"github.com/eraverse/sales-admin-service/internal/security"
	"github.com/eraverse/sales-admin-service/internal/service"
)

type contextKey string

const SessionContextKey contextKey = "session"

// SessionAuth turns the auth service's verdicts into HTTP semantics:
// cookie reads and writes, remember-me fallback, and the role gate.
type SessionAuth struct {
	auth               *service.AuthService
	sessionCookieName  string
	rememberCookieName string
	cookieSecure       bool
}

func NewSessionAuth(auth *service.AuthService, sessionCookie, rememberCookie string, cookieSecure bool) *SessionAuth {
	return &SessionAuth{
		auth:               auth,
		sessionCookieName:  sessionCookie,
		rememberCookieName: rememberCookie,
		cookieSecure:       cookieSecure,
	}
}

func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(*domain.Session)
	return s, ok
}

// Middleware authenticates the request: first the session cookie, then the
// remember-me cookie as fallback. On success the (possibly rotated) session
// ID is re-issued and the session lands in the request context.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.UserAgent()
		ip := clientIPKey(r)

		if id := security.GetCookie(r, a.sessionCookieName); id != "" {
			sess, err := a.auth.Validate(r.Context(), id, ua, ip)
			if err == nil {
				if sess.ID != id {
					security.SetSessionCookie(w, a.sessionCookieName, sess.ID, a.cookieSecure)
				}
				next.ServeHTTP(w, r.WithContext(
					context.WithValue(r.Context(), SessionContextKey, sess)))
				return
			}
			if !isAuthVerdict(err) {
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "session validation failed", nil)
				return
			}
			// Dead session: drop the cookie and fall through to the
			// remember token.
			security.ExpireCookie(w, a.sessionCookieName, a.cookieSecure)
		}

		token := security.GetCookie(r, a.rememberCookieName)
		if token == "" {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
			return
		}

		sess, rotated, err := a.auth.RestoreFromRemember(r.Context(), token, ua, ip)
		if err != nil {
			// A foreign-device token may still be good on its own
			// device, so only hard rejections clear the cookie.
			if errors.Is(err, service.ErrTokenInvalid) {
				security.ExpireCookie(w, a.rememberCookieName, a.cookieSecure)
			}
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
			return
		}
		security.SetSessionCookie(w, a.sessionCookieName, sess.ID, a.cookieSecure)
		security.SetPersistentCookie(w, a.rememberCookieName, rotated, a.auth.RememberLifetime(), a.cookieSecure)
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), SessionContextKey, sess)))
	})
}

// RequireRole gates an already-authenticated route. A role miss is a plain
// 403 and leaves the session untouched.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			for _, role := range roles {
				if sess.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
		})
	}
}

// isAuthVerdict tells an expected validation outcome from an
// infrastructure failure.
func isAuthVerdict(err error) bool {
	return errors.Is(err, service.ErrNotAuthenticated) ||
		errors.Is(err, service.ErrHijackSuspected) ||
		errors.Is(err, service.ErrSessionExpiredIdle) ||
		errors.Is(err, service.ErrSessionExpiredAbsolute)
}
