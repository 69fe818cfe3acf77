package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// newToken generates a cryptographically secure session token.
// 32 bytes = 256 bits of entropy.
func newToken() (string, error) {
	const size = 32

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
