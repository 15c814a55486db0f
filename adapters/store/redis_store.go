package store

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreOperationFailed is returned when the backing store is unreachable
var ErrStoreOperationFailed = errors.New("store operation failed")

// RedisStore is a Redis implementation of ChallengeStore and TokenDenylist.
// Challenge expiry is enforced by key TTL; consume uses GETDEL so two racing
// requests cannot both see the same nonce.
type RedisStore struct {
	client          *redis.Client
	challengePrefix string
	tokenPrefix     string
	ttl             time.Duration
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &RedisStore{
		client:          client,
		challengePrefix: "certichain:challenge:",
		tokenPrefix:     "certichain:invalidated:",
		ttl:             ttl,
	}
}

// Issue implements ports.ChallengeStore
func (s *RedisStore) Issue(ctx context.Context, principal string) (string, error) {
	nonce, err := generateNonce()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.challengePrefix+principal, nonce, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreOperationFailed, err)
	}
	return nonce, nil
}

// Peek implements ports.ChallengeStore
func (s *RedisStore) Peek(ctx context.Context, principal string) (string, bool, error) {
	nonce, err := s.client.Get(ctx, s.challengePrefix+principal).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoreOperationFailed, err)
	}
	return nonce, true, nil
}

// Consume implements ports.ChallengeStore
func (s *RedisStore) Consume(ctx context.Context, principal, nonce string) (bool, error) {
	stored, err := s.client.GetDel(ctx, s.challengePrefix+principal).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreOperationFailed, err)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(nonce)) == 1, nil
}

// Invalidate implements ports.ChallengeStore
func (s *RedisStore) Invalidate(ctx context.Context, principal string) error {
	if err := s.client.Del(ctx, s.challengePrefix+principal).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreOperationFailed, err)
	}
	return nil
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if err := s.client.Set(ctx, s.tokenPrefix+tokenID, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.tokenPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	return val > 0, nil
}
