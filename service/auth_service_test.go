package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kizaaaa/certichain/adapters/store"
	"github.com/Kizaaaa/certichain/adapters/tokenizer"
	"github.com/Kizaaaa/certichain/adapters/verifier"
	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/eth"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	svc      *AuthService
	store    *store.MemoryStore
	clock    *testClock
	admin    *eth.KeySigner
	stranger *eth.KeySigner
	events   *recordingPublisher
}

func newWallet(t *testing.T) *eth.KeySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return eth.NewKeySigner(key)
}

func address(s *eth.KeySigner) string {
	return strings.ToLower(s.Address().Hex())
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	// Tokens are checked against wall time by the JWT parser.
	clock := &testClock{now: time.Now()}
	challenges := store.NewMemoryStore(0, store.WithClock(clock.Now))
	t.Cleanup(func() { _ = challenges.Close() })

	admin := newWallet(t)
	v, err := verifier.NewEthVerifier(verifier.AdminAllowList(admin.Address().Hex()))
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	events := &recordingPublisher{}
	svc := NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		challenges,
		challenges,
		v,
		DefaultSessionTTL,
		WithLogger(logger),
		WithClock(clock.Now),
		WithEvents(events),
	)

	return &authFixture{
		svc:      svc,
		store:    challenges,
		clock:    clock,
		admin:    admin,
		stranger: newWallet(t),
		events:   events,
	}
}

func (f *authFixture) sign(t *testing.T, s *eth.KeySigner, nonce string) string {
	t.Helper()
	sig, err := eth.SignText(s, f.svc.Message(nonce))
	require.NoError(t, err)
	return sig
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	nonce, err := f.svc.Challenge(ctx, f.admin.Address().Hex())
	require.NoError(t, err)

	result, err := f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.admin, nonce), nonce)
	require.NoError(t, err)
	assert.Equal(t, address(f.admin), result.Address)
	assert.Equal(t, core.RoleAdmin, result.Role)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), result.ExpiresAt)
	assert.NotEmpty(t, result.Token)

	session, err := f.svc.ValidateToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, address(f.admin), session.Address)
	assert.NoError(t, RequireRole(session, core.RoleAdmin))

	t.Run("nonce is single use", func(t *testing.T) {
		_, err := f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.admin, nonce), nonce)
		assert.ErrorIs(t, err, core.ErrInvalidNonce)
	})
}

func TestAuthService_Gates(t *testing.T) {
	ctx := context.Background()

	t.Run("address required", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.svc.Challenge(ctx, "  ")
		assert.ErrorIs(t, err, core.ErrAddressRequired)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("principal not on allow-list", func(t *testing.T) {
		f := newAuthFixture(t)
		nonce, err := f.svc.Challenge(ctx, f.stranger.Address().Hex())
		require.NoError(t, err)

		_, err = f.svc.Verify(ctx, f.stranger.Address().Hex(), f.sign(t, f.stranger, nonce), nonce)
		assert.ErrorIs(t, err, core.ErrUnauthorized)
		assert.ErrorIs(t, err, core.ErrAuthorization)
		assert.Equal(t, 0, f.store.Len(), "rejected attempt must burn the challenge")
	})

	t.Run("signature by another wallet", func(t *testing.T) {
		f := newAuthFixture(t)
		nonce, err := f.svc.Challenge(ctx, f.admin.Address().Hex())
		require.NoError(t, err)

		_, err = f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.stranger, nonce), nonce)
		assert.ErrorIs(t, err, core.ErrSignatureMismatch)

		_, err = f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.admin, nonce), nonce)
		assert.ErrorIs(t, err, core.ErrInvalidNonce, "mismatch must not leave the nonce usable")
	})

	t.Run("signature over another nonce", func(t *testing.T) {
		f := newAuthFixture(t)
		nonce, err := f.svc.Challenge(ctx, f.admin.Address().Hex())
		require.NoError(t, err)

		_, err = f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.admin, "deadbeef"), nonce)
		assert.ErrorIs(t, err, core.ErrSignatureMismatch)
	})

	t.Run("stale nonce after reissue", func(t *testing.T) {
		f := newAuthFixture(t)
		first, err := f.svc.Challenge(ctx, f.admin.Address().Hex())
		require.NoError(t, err)
		_, err = f.svc.Challenge(ctx, f.admin.Address().Hex())
		require.NoError(t, err)

		_, err = f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.admin, first), first)
		assert.ErrorIs(t, err, core.ErrInvalidNonce)
	})

	t.Run("missing and wrong nonce look the same", func(t *testing.T) {
		f := newAuthFixture(t)
		_, missing := f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.admin, "00"), "00")

		_, err := f.svc.Challenge(ctx, f.admin.Address().Hex())
		require.NoError(t, err)
		_, wrong := f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.admin, "00"), "00")

		require.Error(t, missing)
		assert.Equal(t, missing.Error(), wrong.Error())
	})

	t.Run("expired challenge", func(t *testing.T) {
		f := newAuthFixture(t)
		nonce, err := f.svc.Challenge(ctx, f.admin.Address().Hex())
		require.NoError(t, err)
		f.clock.Advance(store.DefaultChallengeTTL + time.Millisecond)

		_, err = f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.admin, nonce), nonce)
		assert.ErrorIs(t, err, core.ErrInvalidNonce)
	})

	t.Run("malformed signature", func(t *testing.T) {
		f := newAuthFixture(t)
		nonce, err := f.svc.Challenge(ctx, f.admin.Address().Hex())
		require.NoError(t, err)

		_, err = f.svc.Verify(ctx, f.admin.Address().Hex(), "0x1234", nonce)
		assert.ErrorIs(t, err, core.ErrAuthorization)
	})
}

func TestAuthService_Peek(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.svc.Peek(ctx, f.admin.Address().Hex())
	assert.ErrorIs(t, err, core.ErrInvalidNonce)

	nonce, err := f.svc.Challenge(ctx, f.admin.Address().Hex())
	require.NoError(t, err)

	got, err := f.svc.Peek(ctx, strings.ToUpper(address(f.admin)[2:]))
	require.NoError(t, err)
	assert.Equal(t, nonce, got)
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	nonce, err := f.svc.Challenge(ctx, f.admin.Address().Hex())
	require.NoError(t, err)
	result, err := f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.admin, nonce), nonce)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, result.Token))
	assert.Len(t, f.events.logouts, 1)

	_, err = f.svc.ValidateToken(ctx, result.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated)

	assert.ErrorIs(t, f.svc.Logout(ctx, result.Token), core.ErrTokenInvalidated)
}

func TestAuthService_ValidateToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.svc.ValidateToken(ctx, "")
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = f.svc.ValidateToken(ctx, "not.a.token")
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	nonce, err := f.svc.Challenge(ctx, f.admin.Address().Hex())
	require.NoError(t, err)
	result, err := f.svc.Verify(ctx, f.admin.Address().Hex(), f.sign(t, f.admin, nonce), nonce)
	require.NoError(t, err)

	t.Run("expired by service clock", func(t *testing.T) {
		f.clock.Advance(DefaultSessionTTL)
		defer f.clock.Advance(-DefaultSessionTTL)
		_, err := f.svc.ValidateToken(ctx, result.Token)
		assert.ErrorIs(t, err, core.ErrTokenExpired)
	})

	t.Run("forbidden role", func(t *testing.T) {
		assert.ErrorIs(t, RequireRole(&core.Session{Role: "viewer"}, core.RoleAdmin), core.ErrForbidden)
		assert.ErrorIs(t, RequireRole(nil, core.RoleAdmin), core.ErrInvalidToken)
	})
}
