package store

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kizaaaa/certichain/core"
)

// DefaultChallengeTTL is how long a login challenge stays usable
const DefaultChallengeTTL = 5 * time.Minute

// MemoryStore is an in-process ChallengeStore and TokenDenylist. Expiry is
// checked on every read; the janitor only reclaims memory.
type MemoryStore struct {
	mu                sync.Mutex
	challenges        map[string]*core.Challenge
	invalidatedTokens map[string]time.Time

	ttl  time.Duration
	now  func() time.Time
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithTTL overrides the challenge TTL
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a store and starts a janitor sweeping every
// interval. A non-positive interval disables the janitor.
func NewMemoryStore(interval time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		challenges:        make(map[string]*core.Challenge),
		invalidatedTokens: make(map[string]time.Time),
		ttl:               DefaultChallengeTTL,
		now:               time.Now,
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if interval > 0 {
		go s.janitor(interval)
	} else {
		close(s.done)
	}
	return s
}

// Issue implements ports.ChallengeStore
func (s *MemoryStore) Issue(ctx context.Context, principal string) (string, error) {
	nonce, err := generateNonce()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.challenges[principal] = &core.Challenge{
		ID:        uuid.New().String(),
		Address:   principal,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	return nonce, nil
}

// Peek implements ports.ChallengeStore
func (s *MemoryStore) Peek(ctx context.Context, principal string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[principal]
	if !ok {
		return "", false, nil
	}
	if c.Expired(s.now()) {
		delete(s.challenges, principal)
		return "", false, nil
	}
	return c.Nonce, true, nil
}

// Consume implements ports.ChallengeStore. A live challenge is removed even
// when the presented nonce does not match it.
func (s *MemoryStore) Consume(ctx context.Context, principal, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[principal]
	if !ok {
		return false, nil
	}
	delete(s.challenges, principal)

	if c.Expired(s.now()) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(c.Nonce), []byte(nonce)) == 1, nil
}

// Invalidate implements ports.ChallengeStore
func (s *MemoryStore) Invalidate(ctx context.Context, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, principal)
	return nil
}

// InvalidateToken implements ports.TokenDenylist
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidatedTokens[tokenID] = s.now().Add(expiry)
	return nil
}

// IsTokenInvalidated implements ports.TokenDenylist
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}
	return s.now().Before(expiryTime), nil
}

// Len returns the number of challenges held, live or not
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

// Sweep removes expired challenges and deny-list entries
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for principal, c := range s.challenges {
		if c.Expired(now) {
			delete(s.challenges, principal)
		}
	}
	for id, exp := range s.invalidatedTokens {
		if !now.Before(exp) {
			delete(s.invalidatedTokens, id)
		}
	}
}

// Close stops the janitor
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
