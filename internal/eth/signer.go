package eth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Kizaaaa/certichain/core"
)

// Signer produces recoverable secp256k1 signatures
type Signer interface {
	Address() common.Address
	// SignHash signs a 32-byte digest, returning r || s || v with v in {27, 28}
	SignHash(hash []byte) ([]byte, error)
}

// KeySigner signs with an in-process private key
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewKeySigner wraps a private key
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// NewKeySignerFromHex parses a hex private key, with or without 0x
func NewKeySignerFromHex(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %v", core.ErrInvalidKey, err)
	}
	return NewKeySigner(key), nil
}

// Address returns the signer's Ethereum address
func (s *KeySigner) Address() common.Address {
	return s.addr
}

// PrivateKey exposes the key for transaction signing
func (s *KeySigner) PrivateKey() *ecdsa.PrivateKey {
	return s.key
}

// SignHash implements Signer
func (s *KeySigner) SignHash(hash []byte) ([]byte, error) {
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: sign: %v", core.ErrCrypto, err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// SignText personal_signs msg the way a browser wallet does and returns the
// 0x-prefixed hex signature
func SignText(s Signer, msg string) (string, error) {
	sig, err := s.SignHash(TextHash(msg))
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}
