// File: internal/platform/crypto/generator.go
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// GenerateSecureRandomString creates a cryptographically secure random string.
// n is the number of bytes of randomness; the base64 result is longer.
func GenerateSecureRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HashIdentifier returns a hex SHA-256 of salt and the normalized identifier. Client IPs are
// only ever stored in this form.
func HashIdentifier(salt, identifier string) string {
	sum := sha256.Sum256([]byte(salt + ":" + strings.ToLower(strings.TrimSpace(identifier))))
	return hex.EncodeToString(sum[:])
}
