package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/eraverse/sales-admin-service/internal/http/response"
	"github.com/eraverse/sales-admin-service/internal/observability"
)

// RateLimiter is a per-client fixed-window limiter for the HTTP surface.
// Login brute-force gets its own Redis-backed budget in the service layer;
// this one only shields the API from runaway clients.
type RateLimiter struct {
	limit  int
	window time.Duration
	scope  string

	mu      sync.Mutex
	windows map[string]*clientWindow
	sweep   time.Time
}

type clientWindow struct {
	start time.Time
	count int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		scope:   "api",
		windows: make(map[string]*clientWindow),
		sweep:   time.Now().Add(window),
	}
}

// WithScope names the limiter in metrics; the router uses it to tell the
// auth budget from the general one.
func (rl *RateLimiter) WithScope(scope string) *RateLimiter {
	rl.scope = scope
	return rl
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIP is the address the fingerprint and the limiter key on. RealIP
// runs first in the chain, so RemoteAddr already reflects X-Forwarded-For.
func ClientIP(r *http.Request) string { return clientIPKey(r) }

// take counts one hit and reports whether it fits the window, plus the
// remaining budget and the window reset time.
func (rl *RateLimiter) take(key string, now time.Time) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.sweep) {
		for k, w := range rl.windows {
			if now.Sub(w.start) > 2*rl.window {
				delete(rl.windows, k)
			}
		}
		rl.sweep = now.Add(rl.window)
	}

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		w = &clientWindow{start: now}
		rl.windows[key] = w
	}
	resetAt := w.start.Add(rl.window)
	if w.count >= rl.limit {
		return false, 0, resetAt
	}
	w.count++
	return true, rl.limit - w.count, resetAt
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, resetAt := rl.take(clientIPKey(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				retry := int(time.Until(resetAt).Round(time.Second).Seconds())
				if retry < 1 {
					retry = 1
				}
				h.Set("Retry-After", strconv.Itoa(retry))
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny")
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow")
			next.ServeHTTP(w, r)
		})
	}
}
