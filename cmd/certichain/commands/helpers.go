// Package commands implements the certichain CLI commands.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/internal/app"
	"github.com/Kizaaaa/certichain/internal/config"
)

// ErrNoRegistry is returned by commands that read or write the registry
// when no node is configured
var ErrNoRegistry = errors.New("ETH_RPC_URL is not set: without a node each command gets a fresh in-memory registry")

// openContainer loads configuration and wires the dependencies. With
// needsRegistry set it refuses to fall back to the in-memory ledger.
func openContainer(ctx context.Context, needsRegistry bool) (*app.Container, error) {
	cfg := config.Load()
	if needsRegistry && cfg.EthRPCURL == "" {
		return nil, ErrNoRegistry
	}
	return app.NewContainer(ctx, cfg, cfg.Logger())
}

func closeContainer(container *app.Container, logger logrus.FieldLogger) {
	if err := container.Close(context.Background()); err != nil {
		logger.WithError(err).Error("failed to close container")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validateFormat(format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q, expected 'text' or 'json'", format)
	}
	return nil
}
