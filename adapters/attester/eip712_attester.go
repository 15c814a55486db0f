// Package attester signs EIP-712 attestations binding a document fingerprint
// to its storage locator for one registry deployment.
package attester

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/eth"
)

// EIP712Attester signs attestations with the issuer's key
type EIP712Attester struct {
	signer eth.Signer
	domain eth.EIP712Domain
}

// NewEIP712Attester creates an attester for the registry at chainID/registry
func NewEIP712Attester(signer eth.Signer, chainID uint64, registry common.Address) *EIP712Attester {
	return &EIP712Attester{
		signer: signer,
		domain: eth.RegistryDomain(chainID, registry),
	}
}

// Attest implements ports.Attester
func (a *EIP712Attester) Attest(ctx context.Context, fp core.Fingerprint, storageURI string) ([]byte, error) {
	hash, err := eth.AttestationHash(a.domain, fp, storageURI)
	if err != nil {
		return nil, err
	}
	return a.signer.SignHash(hash)
}

// EIP712Checker verifies attestations against the issuer recorded on the
// ledger, so it needs no key
type EIP712Checker struct {
	domain eth.EIP712Domain
}

// NewEIP712Checker creates a checker for the registry at chainID/registry
func NewEIP712Checker(chainID uint64, registry common.Address) *EIP712Checker {
	return &EIP712Checker{domain: eth.RegistryDomain(chainID, registry)}
}

// Check implements ports.AttestationChecker. An unsigned record is not an
// error, it is simply not attested.
func (c *EIP712Checker) Check(cert *core.Certificate) (bool, error) {
	if len(cert.Signature) == 0 || !common.IsHexAddress(cert.Issuer) {
		return false, nil
	}
	return eth.VerifySignatureAgainstAddress(c.domain, cert.DocumentHash, cert.StorageURI, cert.Signature, common.HexToAddress(cert.Issuer))
}
