package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) *RedisStore {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, ttl)
	s.challengePrefix = "certichain-test:" + uuid.NewString() + ":"
	return s
}

func TestRedisStore_Challenge(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t, time.Minute)

	nonce, err := s.Issue(ctx, principal)
	require.NoError(t, err)

	got, ok, err := s.Peek(ctx, principal)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, nonce, got)

	ok, err = s.Consume(ctx, principal, nonce)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Consume(ctx, principal, nonce)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t, time.Second)

	nonce, err := s.Issue(ctx, principal)
	require.NoError(t, err)
	time.Sleep(1500 * time.Millisecond)

	ok, err := s.Consume(ctx, principal, nonce)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_TokenDenylist(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t, time.Minute)
	s.tokenPrefix = s.challengePrefix + "tok:"

	id := uuid.NewString()
	require.NoError(t, s.InvalidateToken(ctx, id, time.Minute))

	invalidated, err := s.IsTokenInvalidated(ctx, id)
	require.NoError(t, err)
	assert.True(t, invalidated)
}
