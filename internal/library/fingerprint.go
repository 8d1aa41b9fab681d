package library

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint returns the hex BLAKE3-256 digest of a poem's raw text. It
// identifies a revision of the text: stored progress recorded against a
// different fingerprint belongs to an edited poem.
func Fingerprint(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
