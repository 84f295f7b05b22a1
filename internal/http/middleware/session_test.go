package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/repository"
	"github.com/eraverse/sales-admin-service/internal/security"
	"github.com/eraverse/sales-admin-service/internal/service"
)

const (
	testSessionCookie  = "ERASESSID"
	testRememberCookie = "era_remember"
	testUA             = "Mozilla/5.0 test-browser/1.0"
)

type stubUserRepo struct{ user domain.User }

func (s *stubUserRepo) FindByID(id uint) (*domain.User, error) {
	if id == s.user.ID {
		u := s.user
		return &u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (s *stubUserRepo) FindByUsername(username string) (*domain.User, error) {
	if username == s.user.Username {
		u := s.user
		return &u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (s *stubUserRepo) Create(*domain.User) error            { return nil }
func (s *stubUserRepo) Delete(uint) (bool, error)            { return false, nil }
func (s *stubUserRepo) List() ([]domain.User, error)         { return []domain.User{s.user}, nil }
func (s *stubUserRepo) TouchLastLogin(uint, time.Time) error { return nil }

type stubSessionStore struct {
	sessions map[string]domain.Session
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]domain.Session)}
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, service.ErrSessionNotFound
	}
	out := sess
	return &out, nil
}

func (s *stubSessionStore) Save(_ context.Context, sess *domain.Session, _ time.Duration) error {
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *stubSessionStore) Delete(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type sessionFixture struct {
	auth      *SessionAuth
	svc       *service.AuthService
	store     *stubSessionStore
	remember  *security.RememberTokenizer
	handler   http.Handler
	lastSess  *domain.Session
	protected http.Handler
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{store: newStubSessionStore()}
	f.remember = security.NewRememberTokenizer("session-mw-test-secret-0123456789", 30*24*time.Hour)
	f.svc = service.NewAuthService(
		&stubUserRepo{},
		f.store,
		nil,
		f.remember,
		15*time.Minute, 8*time.Hour, 5*time.Minute,
	)
	f.auth = NewSessionAuth(f.svc, testSessionCookie, testRememberCookie, false)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		f.lastSess = sess
		w.WriteHeader(http.StatusOK)
	})
	f.handler = f.auth.Middleware(ok)
	f.protected = f.auth.Middleware(RequireRole(domain.RoleAdmin, domain.RoleOwner)(ok))
	return f
}

func (f *sessionFixture) seedSession(t *testing.T, role string) *domain.Session {
	t.Helper()
	now := time.Now()
	sess := &domain.Session{
		ID:          "sess-1",
		UserID:      7,
		Username:    "alice",
		Role:        role,
		Fingerprint: security.Fingerprint(testUA, "203.0.113.9"),
		CreatedAt:   now,
		LastSeenAt:  now,
		LastRegenAt: now,
	}
	if err := f.store.Save(context.Background(), sess, 8*time.Hour); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return sess
}

func newRequest(cookies map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("User-Agent", testUA)
	r.RemoteAddr = "203.0.113.9:51234"
	for name, value := range cookies {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return r
}

func cookieByName(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionMiddlewareAcceptsValidSession(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.seedSession(t, domain.RoleStaff)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, newRequest(map[string]string{testSessionCookie: sess.ID}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if f.lastSess == nil || f.lastSess.UserID != 7 {
		t.Fatalf("session not propagated: %+v", f.lastSess)
	}
}

func TestSessionMiddlewareRejectsAnonymous(t *testing.T) {
	f := newSessionFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, newRequest(nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSessionMiddlewareClearsDeadSessionCookie(t *testing.T) {
	f := newSessionFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, newRequest(map[string]string{testSessionCookie: "gone"}))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	c := cookieByName(rec.Result(), testSessionCookie)
	if c == nil || c.MaxAge != -1 {
		t.Fatalf("session cookie not expired: %+v", c)
	}
}

func TestSessionMiddlewareRestoresFromRemember(t *testing.T) {
	f := newSessionFixture(t)
	token, _, err := f.remember.Issue(7, "alice", "staff", testUA)
	if err != nil {
		t.Fatalf("issue remember: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, newRequest(map[string]string{testRememberCookie: token}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 via remember restore", rec.Code)
	}
	res := rec.Result()
	if c := cookieByName(res, testSessionCookie); c == nil || c.Value == "" {
		t.Fatal("no fresh session cookie issued")
	}
	c := cookieByName(res, testRememberCookie)
	if c == nil || c.Value == token {
		t.Fatal("remember token not rotated")
	}
	if c.MaxAge <= 0 {
		t.Fatalf("rotated remember cookie MaxAge = %d, want positive", c.MaxAge)
	}
	if f.lastSess == nil || f.lastSess.Username != "alice" {
		t.Fatalf("restored session not propagated: %+v", f.lastSess)
	}
}

func TestSessionMiddlewareRememberRejections(t *testing.T) {
	t.Run("garbage token clears the cookie", func(t *testing.T) {
		f := newSessionFixture(t)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, newRequest(map[string]string{testRememberCookie: "junk"}))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		c := cookieByName(rec.Result(), testRememberCookie)
		if c == nil || c.MaxAge != -1 {
			t.Fatalf("remember cookie not cleared: %+v", c)
		}
	})

	t.Run("foreign device keeps the cookie", func(t *testing.T) {
		f := newSessionFixture(t)
		token, _, err := f.remember.Issue(7, "alice", "staff", "some other browser")
		if err != nil {
			t.Fatalf("issue remember: %v", err)
		}
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, newRequest(map[string]string{testRememberCookie: token}))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if c := cookieByName(rec.Result(), testRememberCookie); c != nil {
			t.Fatalf("soft rejection touched the remember cookie: %+v", c)
		}
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("staff blocked from admin route", func(t *testing.T) {
		f := newSessionFixture(t)
		sess := f.seedSession(t, domain.RoleStaff)

		rec := httptest.NewRecorder()
		f.protected.ServeHTTP(rec, newRequest(map[string]string{testSessionCookie: sess.ID}))

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
		// The session survives a role miss.
		if _, err := f.store.Get(context.Background(), sess.ID); err != nil {
			t.Fatal("role miss destroyed the session")
		}
	})

	t.Run("admin passes", func(t *testing.T) {
		f := newSessionFixture(t)
		sess := f.seedSession(t, domain.RoleAdmin)

		rec := httptest.NewRecorder()
		f.protected.ServeHTTP(rec, newRequest(map[string]string{testSessionCookie: sess.ID}))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}

func TestSessionMiddlewareReissuesRotatedID(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.seedSession(t, domain.RoleStaff)
	// Age the session past the regeneration interval.
	aged := f.store.sessions[sess.ID]
	aged.LastRegenAt = aged.LastRegenAt.Add(-6 * time.Minute)
	f.store.sessions[sess.ID] = aged

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, newRequest(map[string]string{testSessionCookie: sess.ID}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	c := cookieByName(rec.Result(), testSessionCookie)
	if c == nil || c.Value == sess.ID || c.Value == "" {
		t.Fatalf("rotated session ID not re-issued: %+v", c)
	}
}
