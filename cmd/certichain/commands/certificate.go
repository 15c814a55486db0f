package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/core"
)

// RunIssue runs the issuance pipeline on a local file and prints the result
func RunIssue(ctx context.Context, path, name, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if path == "" {
		return errors.New("a document path is required")
	}
	document, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	container, err := openContainer(ctx, true)
	if err != nil {
		return err
	}
	logger := container.Logger()
	defer closeContainer(container, logger)

	meta := core.DocumentMeta{Name: name, ContentType: http.DetectContentType(document)}
	result, err := container.Services().Issuance.Issue(ctx, document, meta, func(stage core.Stage) {
		logger.WithField("stage", stage).Info("issuance stage")
	})
	if err != nil {
		var perr *core.PipelineError
		if errors.As(err, &perr) {
			logger.WithFields(logrus.Fields{
				"stage":       perr.Stage,
				"fingerprint": perr.Partial.Fingerprint.Hex(),
				"locator":     perr.Partial.Locator,
				"tx":          perr.Partial.TransactionRef,
			}).Error("issuance failed")
		}
		return err
	}

	if format == "json" {
		return writeJSON(os.Stdout, map[string]any{
			"certificate_id": uint64(result.CertificateID),
			"tx":             result.TransactionRef,
			"locator":        result.Locator,
			"fingerprint":    result.Fingerprint.Hex(),
			"link":           result.LinkURL,
			"fee_eth":        result.Issuance.Fee.String(),
		})
	}
	fmt.Printf("Certificate ID: %d\n", result.CertificateID)
	fmt.Printf("Transaction:    %s\n", result.TransactionRef)
	fmt.Printf("Locator:        %s\n", result.Locator)
	fmt.Printf("Fingerprint:    %s\n", result.Fingerprint.Hex())
	fmt.Printf("Fee (ETH):      %s\n", result.Issuance.Fee.String())
	fmt.Printf("Link:           %s\n", result.LinkURL)
	return nil
}

// RunOpen verifies a shareable link and writes the plaintext
func RunOpen(ctx context.Context, link, out string) error {
	parsed, err := core.ParseLink(link)
	if err != nil {
		return err
	}

	container, err := openContainer(ctx, false)
	if err != nil {
		return err
	}
	logger := container.Logger()
	defer closeContainer(container, logger)

	result, err := container.Services().Verification.Verify(ctx, parsed)
	if err != nil {
		return err
	}

	entry := logger.WithField("certificate_id", uint64(parsed.CertificateID))
	switch {
	case parsed.CertificateID == 0:
		entry.Warn("link carries no certificate id, document not cross-checked")
	case result.LedgerErr != nil:
		entry.WithError(result.LedgerErr).Warn("registry unavailable, document not cross-checked")
	default:
		if result.Status.Revoked {
			entry.WithField("reason", result.Status.Reason).Warn("certificate is revoked")
		}
		if !result.FingerprintMatch {
			entry.Warn("document does not match the registered fingerprint")
		}
		if !result.LocatorMatch {
			entry.Warn("document was not fetched from the registered location")
		}
		if !result.AttestationValid {
			entry.Warn("registry record carries no valid issuer attestation")
		}
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	_, err = w.Write(result.Plaintext)
	return err
}

// RunRevoke revokes a certificate
func RunRevoke(ctx context.Context, id uint64, reason string) error {
	container, err := openContainer(ctx, true)
	if err != nil {
		return err
	}
	logger := container.Logger()
	defer closeContainer(container, logger)

	revocation, err := container.Services().Revocation.Revoke(ctx, core.CertificateID(id), reason)
	if err != nil {
		return err
	}
	fmt.Printf("Certificate %d revoked in %s\n", revocation.CertificateID, revocation.TxHash)
	return nil
}

// RunStatus prints the revocation status of a certificate
func RunStatus(ctx context.Context, id uint64, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	container, err := openContainer(ctx, true)
	if err != nil {
		return err
	}
	defer closeContainer(container, container.Logger())

	status, err := container.Services().Verification.CheckRevocation(ctx, core.CertificateID(id))
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(os.Stdout, map[string]any{
			"certificate_id": id,
			"revoked":        status.Revoked,
			"reason":         status.Reason,
		})
	}
	if status.Revoked {
		fmt.Printf("Certificate %d is revoked: %s\n", id, status.Reason)
		return nil
	}
	fmt.Printf("Certificate %d is valid\n", id)
	return nil
}
