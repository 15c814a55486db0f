// Package blob holds BlobStore implementations for encrypted artifacts.
// Every locator is derived from the artifact bytes, so re-uploading the same
// artifact is idempotent.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Kizaaaa/certichain/core"
)

// contentKey is the hex SHA-256 of data
func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// splitLocator returns the part after scheme://, failing on a different scheme
func splitLocator(locator, scheme string) (string, error) {
	prefix := scheme + "://"
	if !strings.HasPrefix(locator, prefix) {
		return "", fmt.Errorf("%w: locator %q is not %s", core.ErrFormat, locator, prefix)
	}
	key := strings.TrimPrefix(locator, prefix)
	if key == "" {
		return "", fmt.Errorf("%w: empty locator", core.ErrFormat)
	}
	return key, nil
}

// verifyContent checks bytes fetched by content key
func verifyContent(key string, data []byte) error {
	if contentKey(data) != key {
		return fmt.Errorf("%w: content does not match locator", core.ErrNetwork)
	}
	return nil
}
