package security

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRememberRoundTrip(t *testing.T) {
	issued := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	tok := NewRememberTokenizer(testSecret, 30*24*time.Hour).WithClock(fixedClock(issued))

	raw, claims, err := tok.Issue(7, "alice", "Admin", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if claims.Role != "admin" {
		t.Fatalf("role not lower-cased: %q", claims.Role)
	}
	if claims.ExpiresAt != issued.Add(30*24*time.Hour).Unix() {
		t.Fatalf("unexpected exp %d", claims.ExpiresAt)
	}

	// Any instant strictly before expiry restores.
	tok.WithClock(fixedClock(issued.Add(29 * 24 * time.Hour)))
	got, err := tok.Parse(raw, "Mozilla/5.0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.UserID != 7 || got.Username != "alice" || got.Role != "admin" {
		t.Fatalf("claims mismatch: %+v", got)
	}
}

func TestRememberExpiryEnforced(t *testing.T) {
	issued := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	tok := NewRememberTokenizer(testSecret, time.Hour).WithClock(fixedClock(issued))
	raw, _, err := tok.Issue(7, "alice", "admin", "ua")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// exactly at expiry is already rejected
	tok.WithClock(fixedClock(issued.Add(time.Hour)))
	if _, err := tok.Parse(raw, "ua"); !errors.Is(err, ErrRememberInvalid) {
		t.Fatalf("expected ErrRememberInvalid at expiry, got %v", err)
	}
	tok.WithClock(fixedClock(issued.Add(2 * time.Hour)))
	if _, err := tok.Parse(raw, "ua"); !errors.Is(err, ErrRememberInvalid) {
		t.Fatalf("expected ErrRememberInvalid after expiry, got %v", err)
	}
}

func TestRememberTamperedSignature(t *testing.T) {
	tok := NewRememberTokenizer(testSecret, time.Hour)
	raw, _, err := tok.Issue(7, "alice", "admin", "ua")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	payload, sig, _ := strings.Cut(raw, ".")
	sigBytes, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		t.Fatalf("decode sig: %v", err)
	}
	sigBytes[0] ^= 0x01 // single bit flip
	tampered := payload + "." + base64.RawURLEncoding.EncodeToString(sigBytes)
	if _, err := tok.Parse(tampered, "ua"); !errors.Is(err, ErrRememberInvalid) {
		t.Fatalf("expected ErrRememberInvalid, got %v", err)
	}
}

func TestRememberTamperedClaims(t *testing.T) {
	tok := NewRememberTokenizer(testSecret, time.Hour)
	raw, claims, err := tok.Issue(7, "alice", "staff", "ua")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims.Role = "owner" // privilege escalation attempt without re-signing
	forged, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, sig, _ := strings.Cut(raw, ".")
	tampered := base64.RawURLEncoding.EncodeToString(forged) + "." + sig
	if _, err := tok.Parse(tampered, "ua"); !errors.Is(err, ErrRememberInvalid) {
		t.Fatalf("expected ErrRememberInvalid, got %v", err)
	}
}

func TestRememberStructuralFailures(t *testing.T) {
	tok := NewRememberTokenizer(testSecret, time.Hour)
	sign := func(payload string) string {
		enc := base64.RawURLEncoding
		return enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString(tok.sign([]byte(payload)))
	}
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no dot", "abcdef"},
		{"bad base64", "!!!.!!!"},
		{"not json", sign("hello")},
		{"missing uid", sign(`{"u":"a","r":"admin","iat":1,"exp":99999999999}`)},
		{"missing role", sign(`{"uid":1,"u":"a","iat":1,"exp":99999999999}`)},
		{"mistyped uid", sign(`{"uid":"x","u":"a","r":"admin","iat":1,"exp":99999999999}`)},
		{"zero exp", sign(`{"uid":1,"u":"a","r":"admin","iat":1,"exp":0}`)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tok.Parse(tc.token, "ua"); !errors.Is(err, ErrRememberInvalid) {
				t.Fatalf("expected ErrRememberInvalid, got %v", err)
			}
		})
	}
}

func TestRememberForeignDeviceIsSoftRejection(t *testing.T) {
	tok := NewRememberTokenizer(testSecret, time.Hour)
	raw, _, err := tok.Issue(7, "alice", "admin", "device-a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = tok.Parse(raw, "device-b")
	if !errors.Is(err, ErrRememberForeignDevice) {
		t.Fatalf("expected ErrRememberForeignDevice, got %v", err)
	}
	if errors.Is(err, ErrRememberInvalid) {
		t.Fatalf("foreign-device rejection must stay distinct from invalid")
	}
}

func TestRememberWrongSecret(t *testing.T) {
	raw, _, err := NewRememberTokenizer(testSecret, time.Hour).Issue(7, "alice", "admin", "ua")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other := NewRememberTokenizer("another-secret-another-secret-00", time.Hour)
	if _, err := other.Parse(raw, "ua"); !errors.Is(err, ErrRememberInvalid) {
		t.Fatalf("expected ErrRememberInvalid under rotated secret, got %v", err)
	}
}
