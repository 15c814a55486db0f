package core

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FingerprintSize is the width of a document fingerprint in bytes
const FingerprintSize = 32

// Fingerprint is the SHA-256 digest of a rendered document's exact bytes
type Fingerprint [FingerprintSize]byte

// Hex returns the canonical lowercase hex form without a 0x prefix
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

func (f Fingerprint) String() string {
	return f.Hex()
}

// IsZero reports whether the fingerprint is unset
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// ParseFingerprint decodes a hex fingerprint, with or without a 0x prefix
func ParseFingerprint(s string) (Fingerprint, error) {
	var f Fingerprint
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return f, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	if len(b) != FingerprintSize {
		return f, fmt.Errorf("%w: fingerprint must be %d bytes", ErrFormat, FingerprintSize)
	}
	copy(f[:], b)
	return f, nil
}

// CertificateID is the registry-assigned certificate identifier
type CertificateID uint64

// Certificate is the ledger-owned record of an issued certificate
type Certificate struct {
	ID               CertificateID
	DocumentHash     Fingerprint
	StorageURI       string
	Issuer           string
	Signature        []byte
	IssuedAt         time.Time
	Revoked          bool
	RevocationReason string
}

// Issuance is the confirmed result of a ledger write
type Issuance struct {
	CertificateID CertificateID
	TxHash        string
	BlockNumber   uint64
	Fee           decimal.Decimal // in ether
}

// Revocation is the confirmed result of a revoke call
type Revocation struct {
	CertificateID CertificateID
	TxHash        string
	Reason        string
}

// RevocationStatus is advisory display data read from the ledger
type RevocationStatus struct {
	Revoked bool
	Reason  string
}

// DocumentMeta describes a rendered document handed to the issuance pipeline
type DocumentMeta struct {
	Name        string // blob name, defaults to "<fingerprint>.enc"
	ContentType string
}

// VerificationResult is what a viewer gets back from a shareable link
type VerificationResult struct {
	Plaintext   []byte
	Certificate *Certificate
	Status      RevocationStatus
	// FingerprintMatch is true when the decrypted bytes hash to the
	// fingerprint recorded on the ledger.
	FingerprintMatch bool
	// LocatorMatch is true when the link's locator is the one recorded on
	// the ledger.
	LocatorMatch bool
	// AttestationValid is true when the recorded signature is an EIP-712
	// attestation by the recorded issuer. Unchecked when attestation
	// checking is disabled.
	AttestationValid bool
	// LedgerErr is set when the ledger could not be read. The plaintext is
	// still returned.
	LedgerErr error
}

// Trusted reports whether the document is intact, anchored and not revoked
func (r *VerificationResult) Trusted() bool {
	return r.FingerprintMatch && r.LocatorMatch && !r.Status.Revoked
}
