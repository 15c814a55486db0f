// Package eth holds the Ethereum signing primitives used for wallet login
// and certificate attestation.
package eth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Kizaaaa/certichain/core"
)

// NonceMessage is the text a wallet signs to answer a login challenge. The
// nonce is embedded verbatim so a signature only ever answers one challenge.
func NonceMessage(nonce string) string {
	return fmt.Sprintf("Sign this message to authenticate.\n\nNonce: %s", nonce)
}

// TextHash returns the EIP-191 personal_sign digest of msg
func TextHash(msg string) []byte {
	return accounts.TextHash([]byte(msg))
}

// CanonicalAddress validates a hex address and returns its lowercase form
func CanonicalAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", core.ErrAddressRequired
	}
	if !common.IsHexAddress(address) {
		return "", core.ErrInvalidAddress
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}
