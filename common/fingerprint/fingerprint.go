// Package fingerprint computes content-addressed identifiers for
// uploaded score files. The fingerprint is derived from raw file bytes
// only; filenames, content types and upload timing never influence it.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"strings"
)

// Prefix identifies the digest algorithm in serialized fingerprints.
const Prefix = "sha256:"

// hexDigestLen is the length of a lowercase hex SHA-256 digest.
const hexDigestLen = 64

// Hasher accumulates content in a single streaming pass.
// It implements io.Writer so uploads can be hashed while buffered.
type Hasher struct {
	h hash.Hash
}

// New creates a streaming hasher.
func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write feeds content into the hasher. It never returns an error.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Fingerprint returns the fingerprint of everything written so far.
func (h *Hasher) Fingerprint() string {
	return fmt.Sprintf("%s%x", Prefix, h.h.Sum(nil))
}

// Compute returns the fingerprint of data in one call.
func Compute(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s%x", Prefix, sum)
}

// Valid reports whether s is a well-formed fingerprint.
func Valid(s string) bool {
	if !strings.HasPrefix(s, Prefix) {
		return false
	}
	digest := s[len(Prefix):]
	if len(digest) != hexDigestLen {
		return false
	}
	for i := 0; i < len(digest); i++ {
		c := digest[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
