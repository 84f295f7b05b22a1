package domain

import "time"

// Session is the server-side state behind one authenticated browser session.
// It lives in the session store keyed by its opaque ID; the client only ever
// sees the ID via the session cookie.
type Session struct {
	ID          string    `json:"-"`
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	LastRegenAt time.Time `json:"last_regen_at"`
}

// Authenticated reports whether the session carries a usable identity.
// A session missing either the user id or the role is never authenticated.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0 && s.Role != ""
}
