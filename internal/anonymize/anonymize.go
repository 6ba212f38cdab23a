// Package anonymize derives the masked identity fields published to the
// dashboard and export surfaces. Raw names, household ids and contact
// numbers never leave the reconciler; everything downstream sees only the
// values produced here.
package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultSalt seeds hashing when no salt is configured.
const DefaultSalt = "DASHBOARD_2025_SECURE"

// Masker produces stable pseudonymous tokens and readable masks.
type Masker struct {
	salt string
}

// New returns a Masker using the given salt; an empty salt falls back to
// DefaultSalt so tokens stay stable across deployments that never set one.
func New(salt string) *Masker {
	if salt == "" {
		salt = DefaultSalt
	}
	return &Masker{salt: salt}
}

// SaltHash derives a stable 8-character token from a value. The value is
// trimmed and lowercased first so formatting noise in the feed does not
// split one person into several tokens. Empty input stays empty.
func (mk *Masker) SaltHash(value, prefix string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v + mk.salt))
	return prefix + strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

// MaskReadable keeps the first and last character of a value and hides the
// middle. Values of two characters or fewer pass through unchanged.
func MaskReadable(value string) string {
	v := strings.TrimSpace(value)
	if len(v) <= 2 {
		return v
	}
	return v[:1] + "****" + v[len(v)-1:]
}

// MaskContact keeps the first two and last two digits of a contact number.
// Anything shorter than four characters masks fully.
func MaskContact(value string) string {
	v := strings.TrimSpace(value)
	if len(v) < 4 {
		return "****"
	}
	return v[:2] + strings.Repeat("X", len(v)-4) + v[len(v)-2:]
}

// NormalizePhone strips non-digit characters and prefixes the country code
// to bare ten-digit Indian mobile numbers. Other lengths pass through
// digits-only.
func NormalizePhone(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return "91" + digits
	}
	return digits
}
