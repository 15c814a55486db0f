package app

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Kizaaaa/certichain/core"
)

// GenerateTokenKey creates a P-256 session signing key
func GenerateTokenKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// EncodeTokenKey renders a session signing key as hex SEC 1 DER
func EncodeTokenKey(key *ecdsa.PrivateKey) (string, error) {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token key: %w", err)
	}
	return hex.EncodeToString(der), nil
}

// ParseTokenKey reads a key produced by EncodeTokenKey
func ParseTokenKey(s string) (*ecdsa.PrivateKey, error) {
	der, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: token key: %v", core.ErrInvalidHex, err)
	}
	key, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: token key: %v", core.ErrInvalidKey, err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: token key must be P-256", core.ErrInvalidKey)
	}
	return key, nil
}

// GenerateIssuerKey creates a secp256k1 wallet key and returns it as hex
// with its address
func GenerateIssuerKey() (string, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate issuer key: %w", err)
	}
	return hex.EncodeToString(crypto.FromECDSA(key)), crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}
