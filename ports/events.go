package ports

import (
	"context"

	"github.com/Kizaaaa/certichain/core"
)

// EventPublisher publishes lifecycle events to other instances
type EventPublisher interface {
	PublishIssued(ctx context.Context, result *core.IssueResult) error
	PublishRevoked(ctx context.Context, revocation *core.Revocation) error
	PublishLogout(ctx context.Context, address string, tokenID string) error
}
