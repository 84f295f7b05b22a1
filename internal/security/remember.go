package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrRememberInvalid covers every hard failure: malformed token, bad
	// signature, missing or mistyped claims, expiry. Callers delete the
	// cookie and fall through to the login page.
	ErrRememberInvalid = errors.New("remember token invalid")

	// ErrRememberForeignDevice is the soft rejection for a valid token
	// presented from a different user-agent. The cookie may still work
	// from the original device, so callers keep it.
	ErrRememberForeignDevice = errors.New("remember token bound to another device")
)

// RememberClaims is the payload of the stateless remember-me credential.
// Field order is the canonical serialization order; the JSON bytes are what
// gets signed, so the order must never change.
type RememberClaims struct {
	UserID        uint   `json:"uid"`
	Username      string `json:"u"`
	Role          string `json:"r"`
	IssuedAt      int64  `json:"iat"`
	ExpiresAt     int64  `json:"exp"`
	UserAgentHash string `json:"uah,omitempty"`
}

// RememberTokenizer mints and verifies HMAC-SHA256 signed remember tokens:
// base64url(claims JSON) + "." + base64url(signature), both unpadded.
// Tokens carry no server-side state; rotation of the secret revokes every
// outstanding token at once.
type RememberTokenizer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewRememberTokenizer(secret string, lifetime time.Duration) *RememberTokenizer {
	return &RememberTokenizer{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// WithClock swaps the time source, for deterministic tests and for callers
// that already inject a clock.
func (t *RememberTokenizer) WithClock(now func() time.Time) *RememberTokenizer {
	t.now = now
	return t
}

func (t *RememberTokenizer) Lifetime() time.Duration { return t.lifetime }

func (t *RememberTokenizer) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Issue mints a token for the given identity, bound to the issuing device's
// user-agent. Role is stored lower-cased like everywhere else.
func (t *RememberTokenizer) Issue(userID uint, username, role, userAgent string) (string, RememberClaims, error) {
	now := t.now()
	claims := RememberClaims{
		UserID:        userID,
		Username:      username,
		Role:          strings.ToLower(role),
		IssuedAt:      now.Unix(),
		ExpiresAt:     now.Add(t.lifetime).Unix(),
		UserAgentHash: UserAgentHash(userAgent),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", RememberClaims{}, err
	}
	enc := base64.RawURLEncoding
	token := enc.EncodeToString(payload) + "." + enc.EncodeToString(t.sign(payload))
	return token, claims, nil
}

// Parse verifies a token against the current secret, the clock, and the
// presenting device. It returns ErrRememberInvalid for anything structurally
// or cryptographically wrong and ErrRememberForeignDevice when only the
// user-agent binding fails.
func (t *RememberTokenizer) Parse(token, userAgent string) (*RememberClaims, error) {
	p64, s64, found := strings.Cut(token, ".")
	if !found {
		return nil, ErrRememberInvalid
	}
	enc := base64.RawURLEncoding
	payload, err := enc.DecodeString(strings.TrimRight(p64, "="))
	if err != nil {
		return nil, ErrRememberInvalid
	}
	sig, err := enc.DecodeString(strings.TrimRight(s64, "="))
	if err != nil {
		return nil, ErrRememberInvalid
	}
	if !hmac.Equal(sig, t.sign(payload)) {
		return nil, ErrRememberInvalid
	}

	var claims RememberClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrRememberInvalid
	}
	if claims.UserID == 0 || claims.Username == "" || claims.Role == "" || claims.ExpiresAt <= 0 {
		return nil, ErrRememberInvalid
	}
	if claims.ExpiresAt <= t.now().Unix() {
		return nil, ErrRememberInvalid
	}
	if claims.UserAgentHash != "" && claims.UserAgentHash != UserAgentHash(userAgent) {
		return nil, ErrRememberForeignDevice
	}
	return &claims, nil
}
