package verifier

import (
	"fmt"
	"strings"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/eth"
	"github.com/Kizaaaa/certichain/ports"
)

// EthVerifier recovers EIP-191 signers and checks them against a role
// allow-list
type EthVerifier struct {
	allowed map[string]core.Role
}

// NewEthVerifier builds a verifier from an address → role allow-list.
// Addresses are canonicalized; an invalid entry is an error.
func NewEthVerifier(allowList map[string]core.Role) (ports.SignatureVerifier, error) {
	allowed := make(map[string]core.Role, len(allowList))
	for address, role := range allowList {
		canonical, err := eth.CanonicalAddress(address)
		if err != nil {
			return nil, fmt.Errorf("allow-list entry %q: %w", address, err)
		}
		allowed[canonical] = role
	}
	return &EthVerifier{allowed: allowed}, nil
}

// AdminAllowList grants RoleAdmin to each address
func AdminAllowList(addresses ...string) map[string]core.Role {
	list := make(map[string]core.Role, len(addresses))
	for _, a := range addresses {
		if a = strings.TrimSpace(a); a != "" {
			list[a] = core.RoleAdmin
		}
	}
	return list
}

// Recover implements ports.SignatureVerifier
func (v *EthVerifier) Recover(message, signature string) (string, error) {
	addr, err := eth.RecoverText(message, signature)
	if err != nil {
		return "", err
	}
	return strings.ToLower(addr.Hex()), nil
}

// Authorize implements ports.SignatureVerifier
func (v *EthVerifier) Authorize(principal string) (core.Role, bool) {
	role, ok := v.allowed[strings.ToLower(principal)]
	return role, ok
}
