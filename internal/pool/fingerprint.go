package pool

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintPrefixLen is how many hex characters of a fingerprint the
// introspection APIs expose.
const fingerprintPrefixLen = 12

// Fingerprint returns the hex SHA-256 digest of a connection string.
// Pool entries are keyed by this digest so that connection strings, which
// carry credentials, never appear as map keys or in logs.
func Fingerprint(uri string) string {
	sum := sha256.Sum256([]byte(uri))
	return hex.EncodeToString(sum[:])
}

func shortFingerprint(fp string) string {
	if len(fp) <= fingerprintPrefixLen {
		return fp
	}
	return fp[:fingerprintPrefixLen]
}
