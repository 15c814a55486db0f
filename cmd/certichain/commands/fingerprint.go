package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/digest"
)

// ErrFingerprintMismatch is returned when a document does not hash to the
// expected fingerprint
var ErrFingerprintMismatch = errors.New("document does not match the expected fingerprint")

// RunFingerprint prints the fingerprint of a document and, when expect is
// set, compares it with a fingerprint read from the registry
func RunFingerprint(w io.Writer, path, expect string) error {
	if path == "" {
		return errors.New("a document path is required")
	}

	var want core.Fingerprint
	if expect != "" {
		var err error
		if want, err = core.ParseFingerprint(expect); err != nil {
			return err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	got, err := digest.FingerprintReader(f)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	if _, err := fmt.Fprintln(w, got.Hex()); err != nil {
		return err
	}
	if expect != "" && got != want {
		return ErrFingerprintMismatch
	}
	return nil
}
