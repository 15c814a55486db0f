package commands

import (
	"fmt"
	"io"

	"github.com/Kizaaaa/certichain/internal/app"
)

// RunKeygen prints a fresh TOKEN_SIGNING_KEY and ISSUER_PRIVATE_KEY
func RunKeygen(w io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	tokenKey, err := app.GenerateTokenKey()
	if err != nil {
		return fmt.Errorf("failed to generate token key: %w", err)
	}
	tokenHex, err := app.EncodeTokenKey(tokenKey)
	if err != nil {
		return err
	}
	issuerHex, issuerAddr, err := app.GenerateIssuerKey()
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(w, map[string]string{
			"token_signing_key":  tokenHex,
			"issuer_private_key": issuerHex,
			"issuer_address":     issuerAddr,
		})
	}
	_, err = fmt.Fprintf(w, "TOKEN_SIGNING_KEY=%s\nISSUER_PRIVATE_KEY=%s\n# issuer address: %s\n", tokenHex, issuerHex, issuerAddr)
	return err
}
