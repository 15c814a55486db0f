package ports

import (
	"context"

	"github.com/Kizaaaa/certichain/core"
)

// Ledger is the on-chain certificate registry
type Ledger interface {
	// IssueCertificate records a certificate and waits for confirmation. A
	// confirmed write whose id cannot be read returns *core.IDExtractionError.
	IssueCertificate(ctx context.Context, fp core.Fingerprint, storageURI string, signature []byte) (*core.Issuance, error)
	RevokeCertificate(ctx context.Context, id core.CertificateID, reason string) (*core.Revocation, error)
	Certificate(ctx context.Context, id core.CertificateID) (*core.Certificate, error)
	Count(ctx context.Context) (uint64, error)
}

// Attester signs a fingerprint attestation for the ledger record
type Attester interface {
	Attest(ctx context.Context, fp core.Fingerprint, storageURI string) ([]byte, error)
}

// AttestationChecker verifies the attestation stored with a ledger record
type AttestationChecker interface {
	Check(cert *core.Certificate) (bool, error)
}
