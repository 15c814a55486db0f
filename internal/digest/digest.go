// Package digest computes document fingerprints.
package digest

import (
	"crypto/sha256"
	"io"

	"github.com/Kizaaaa/certichain/core"
)

// Fingerprint returns the SHA-256 digest of data. Empty input is valid.
func Fingerprint(data []byte) core.Fingerprint {
	return core.Fingerprint(sha256.Sum256(data))
}

// FingerprintReader hashes everything read from r
func FingerprintReader(r io.Reader) (core.Fingerprint, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return core.Fingerprint{}, err
	}
	var f core.Fingerprint
	copy(f[:], h.Sum(nil))
	return f, nil
}
