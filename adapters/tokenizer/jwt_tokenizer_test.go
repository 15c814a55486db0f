package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kizaaaa/certichain/core"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func newSession(expiresIn time.Duration) *core.Session {
	now := time.Now().Truncate(time.Second)
	return &core.Session{
		ID:        "jti-1",
		Address:   "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		Role:      core.RoleAdmin,
		IssuedAt:  now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func TestJWTTokenizer_RoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	session := newSession(24 * time.Hour)

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)

	got, err := tk.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.Address, got.Address)
	assert.Equal(t, session.Role, got.Role)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))
}

func TestJWTTokenizer_Rejects(t *testing.T) {
	key := newKey(t)
	tk := NewJWTTokenizer(key)

	t.Run("expired", func(t *testing.T) {
		token, err := tk.SessionToToken(newSession(-time.Minute))
		require.NoError(t, err)

		_, err = tk.TokenToSession(token)
		assert.ErrorIs(t, err, core.ErrTokenExpired)
	})

	t.Run("signed by another key", func(t *testing.T) {
		token, err := NewJWTTokenizer(newKey(t)).SessionToToken(newSession(time.Hour))
		require.NoError(t, err)

		_, err = tk.TokenToSession(token)
		assert.ErrorIs(t, err, core.ErrInvalidToken)
	})

	t.Run("forged subject", func(t *testing.T) {
		token, err := tk.SessionToToken(newSession(time.Hour))
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		payload, err := base64.RawURLEncoding.DecodeString(parts[1])
		require.NoError(t, err)
		forged := strings.Replace(string(payload), "0x5aaeb6", "0x000000", 1)
		parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

		_, err = tk.TokenToSession(strings.Join(parts, "."))
		assert.ErrorIs(t, err, core.ErrAuthorization)
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    Issuer,
				Subject:   "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
				Audience:  jwt.ClaimStrings{AudienceSession},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
			Role: string(core.RoleAdmin),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tk.TokenToSession(token)
		assert.ErrorIs(t, err, core.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tk.TokenToSession("not-a-token")
		assert.ErrorIs(t, err, core.ErrInvalidToken)
	})
}
