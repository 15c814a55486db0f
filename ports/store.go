package ports

import (
	"context"
	"time"
)

// ChallengeStore keeps at most one live challenge nonce per principal
type ChallengeStore interface {
	// Issue creates a new nonce for principal, replacing any previous one
	Issue(ctx context.Context, principal string) (string, error)
	// Peek returns the live nonce without consuming it
	Peek(ctx context.Context, principal string) (string, bool, error)
	// Consume atomically checks nonce against the live challenge and removes
	// it. It returns false when the challenge is absent, expired or different.
	Consume(ctx context.Context, principal, nonce string) (bool, error)
	// Invalidate drops any live challenge for principal
	Invalidate(ctx context.Context, principal string) error
}

// TokenDenylist records session tokens that were logged out before expiry
type TokenDenylist interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
