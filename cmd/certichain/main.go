// Package main provides the certichain entry point with CLI commands.
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/Kizaaaa/certichain/cmd/certichain/commands"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "certichain",
		Usage:   "Issue and verify encrypted certificates anchored on Ethereum",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:      "issue",
				Usage:     "Encrypt, store and register a rendered document (requires ETH_RPC_URL)",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Blob name (defaults to <fingerprint>.enc)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunIssue(ctx, cmd.Args().First(), cmd.String("name"), cmd.String("format"))
				},
			},
			{
				Name:      "open",
				Usage:     "Fetch and decrypt a certificate from its shareable link",
				ArgsUsage: "<link>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Write the document here instead of stdout",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunOpen(ctx, cmd.Args().First(), cmd.String("out"))
				},
			},
			{
				Name:  "revoke",
				Usage: "Revoke a certificate on the registry (requires ETH_RPC_URL)",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Certificate ID",
					},
					&cli.StringFlag{
						Name:     "reason",
						Aliases:  []string{"r"},
						Required: true,
						Usage:    "Revocation reason recorded on chain",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRevoke(ctx, cmd.Uint64("id"), cmd.String("reason"))
				},
			},
			{
				Name:  "status",
				Usage: "Show the revocation status of a certificate (requires ETH_RPC_URL)",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Certificate ID",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunStatus(ctx, cmd.Uint64("id"), cmd.String("format"))
				},
			},
			{
				Name:      "fingerprint",
				Usage:     "Print the SHA-256 fingerprint of a document",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "expect",
						Aliases: []string{"e"},
						Usage:   "Fail unless the document hashes to this fingerprint",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunFingerprint(os.Stdout, cmd.Args().First(), cmd.String("expect"))
				},
			},
			{
				Name:  "keygen",
				Usage: "Generate a session signing key and an issuer wallet",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunKeygen(os.Stdout, cmd.String("format"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Error("application error")
		os.Exit(1)
	}
}
