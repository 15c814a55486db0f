package eth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Kizaaaa/certichain/core"
)

// SignatureLength is the size of an r || s || v signature
const SignatureLength = crypto.SignatureLength

// DecodeSignature decodes a 0x-prefixed 65-byte signature and normalizes
// the recovery id to 0/1. Wallets emit 27/28.
func DecodeSignature(signature string) ([]byte, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("%w: signature must be %d bytes", core.ErrInvalidSignature, SignatureLength)
	}
	switch sig[crypto.RecoveryIDOffset] {
	case 0, 1:
	case 27, 28:
		sig[crypto.RecoveryIDOffset] -= 27
	default:
		return nil, fmt.Errorf("%w: bad recovery id", core.ErrInvalidSignature)
	}
	return sig, nil
}

// RecoverHash returns the address that produced sig over hash
func RecoverHash(hash, sig []byte) (common.Address, error) {
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// RecoverText returns the address that personal_signed msg
func RecoverText(msg, signature string) (common.Address, error) {
	sig, err := DecodeSignature(signature)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverHash(TextHash(msg), sig)
}

// VerifySignatureAgainstAddress reports whether signature over the EIP-712
// attestation for (fp, storageURI) was made by expected
func VerifySignatureAgainstAddress(domain EIP712Domain, fp core.Fingerprint, storageURI string, signature []byte, expected common.Address) (bool, error) {
	hash, err := AttestationHash(domain, fp, storageURI)
	if err != nil {
		return false, err
	}
	sig := append([]byte(nil), signature...)
	if len(sig) != SignatureLength {
		return false, fmt.Errorf("%w: signature must be %d bytes", core.ErrInvalidSignature, SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	addr, err := RecoverHash(hash, sig)
	if err != nil {
		return false, err
	}
	return addr == expected, nil
}
