package extract

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex-encoded SHA-256 digest of the raw file bytes.
// The digest depends on the bytes alone, never on filename or metadata, and is
// used purely as an opaque deduplication key.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
