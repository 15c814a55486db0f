package ports

import "github.com/Kizaaaa/certichain/core"

// SignatureVerifier recovers signers and checks them against the allow-list
type SignatureVerifier interface {
	// Recover returns the canonical address that signed message
	Recover(message, signature string) (string, error)
	// Authorize returns the role granted to principal, if any
	Authorize(principal string) (core.Role, bool)
}
