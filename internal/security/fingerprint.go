package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// IPPrefix reduces a dotted-decimal IPv4 address to its first two octets
// including trailing dots ("203.0.113.9" -> "203.0."). The coarse prefix
// tolerates NAT and mobile-carrier churn inside a /16 while still tying the
// session to a network. Anything that is not dotted-decimal (IPv6, empty)
// is returned unchanged and binds the session to the exact address.
func IPPrefix(ip string) string {
	parts := strings.SplitN(ip, ".", 3)
	if len(parts) < 3 {
		return ip
	}
	for _, p := range parts[:2] {
		if p == "" {
			return ip
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return ip
			}
		}
	}
	return parts[0] + "." + parts[1] + "."
}

// Fingerprint derives the session hijack signal from the request's
// user-agent and coarse IP prefix.
func Fingerprint(userAgent, ip string) string {
	sum := sha256.Sum256([]byte(userAgent + "|" + IPPrefix(ip)))
	return hex.EncodeToString(sum[:])
}

// FingerprintEqual compares fingerprints in constant time.
func FingerprintEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// UserAgentHash is the device binding carried inside remember tokens.
func UserAgentHash(userAgent string) string {
	sum := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:])
}
