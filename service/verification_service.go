package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/aead"
	"github.com/Kizaaaa/certichain/internal/digest"
	"github.com/Kizaaaa/certichain/internal/metrics"
	"github.com/Kizaaaa/certichain/ports"
)

// VerificationService opens shareable links and reads ledger state
type VerificationService struct {
	cipher  *aead.Cipher
	blobs   ports.BlobStore
	ledger  ports.Ledger
	checker ports.AttestationChecker
	options
}

// NewVerificationService creates the verification reader. A nil checker
// leaves VerificationResult.AttestationValid false.
func NewVerificationService(cipher *aead.Cipher, blobs ports.BlobStore, ledger ports.Ledger, checker ports.AttestationChecker, opts ...Option) *VerificationService {
	if cipher == nil {
		cipher = aead.New()
	}
	return &VerificationService{
		cipher:  cipher,
		blobs:   blobs,
		ledger:  ledger,
		checker: checker,
		options: newOptions("verification", opts),
	}
}

// Open fetches the artifact at locator and decrypts it with keyHex
func (s *VerificationService) Open(ctx context.Context, locator, keyHex string) ([]byte, error) {
	artifact, err := s.blobs.Get(ctx, locator)
	if err != nil {
		if core.Category(err) == nil {
			err = fmt.Errorf("%w: %w", core.ErrNetwork, err)
		}
		return nil, err
	}
	return s.cipher.Open(keyHex, artifact)
}

// CheckRevocation reads the revocation flag of a certificate. The result is
// display data and never gates decryption.
func (s *VerificationService) CheckRevocation(ctx context.Context, id core.CertificateID) (core.RevocationStatus, error) {
	cert, err := s.ledger.Certificate(ctx, id)
	if err != nil {
		return core.RevocationStatus{}, err
	}
	return core.RevocationStatus{Revoked: cert.Revoked, Reason: cert.RevocationReason}, nil
}

// Verify opens link and cross-checks the plaintext against the ledger record
func (s *VerificationService) Verify(ctx context.Context, link core.ShareableLink) (*core.VerificationResult, error) {
	start := s.now()
	result, err := s.verify(ctx, link)
	status := metrics.Status(err)
	s.metrics.RecordOperation(ctx, metrics.DomainVerification, "verify", status)
	s.metrics.RecordDuration(ctx, metrics.DomainVerification, "verify", s.now().Sub(start), status)
	return result, err
}

func (s *VerificationService) verify(ctx context.Context, link core.ShareableLink) (*core.VerificationResult, error) {
	plaintext, err := s.Open(ctx, link.Locator, link.KeyHex)
	if err != nil {
		return nil, err
	}

	result := &core.VerificationResult{Plaintext: plaintext}
	if link.CertificateID == 0 {
		return result, nil
	}

	cert, err := s.ledger.Certificate(ctx, link.CertificateID)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"certificate_id": link.CertificateID,
			"error":          err.Error(),
		}).Warn("ledger record unavailable")
		result.LedgerErr = err
		return result, nil
	}

	result.Certificate = cert
	result.Status = core.RevocationStatus{Revoked: cert.Revoked, Reason: cert.RevocationReason}
	result.FingerprintMatch = digest.Fingerprint(plaintext) == cert.DocumentHash
	result.LocatorMatch = cert.StorageURI == link.Locator

	if s.checker != nil {
		valid, err := s.checker.Check(cert)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"certificate_id": link.CertificateID,
				"error":          err.Error(),
			}).Warn("unreadable attestation")
		}
		result.AttestationValid = valid
	}

	if !result.FingerprintMatch || !result.LocatorMatch {
		s.log.WithFields(logrus.Fields{
			"certificate_id":    link.CertificateID,
			"fingerprint_match": result.FingerprintMatch,
			"locator_match":     result.LocatorMatch,
		}).Warn("document does not match ledger record")
	}

	return result, nil
}

// RegistryCount returns how many certificates the registry holds
func (s *VerificationService) RegistryCount(ctx context.Context) (uint64, error) {
	return s.ledger.Count(ctx)
}
