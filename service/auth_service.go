package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/eth"
	"github.com/Kizaaaa/certichain/internal/metrics"
	"github.com/Kizaaaa/certichain/ports"
)

// DefaultSessionTTL is the lifetime of a session token
const DefaultSessionTTL = 24 * time.Hour

// minDenylistTTL keeps a logged-out token deny-listed past small clock skew
const minDenylistTTL = time.Minute

// LoginResult is returned by a successful challenge verification
type LoginResult struct {
	Token     string
	Address   string
	Role      core.Role
	ExpiresAt time.Time
}

// AuthService handles wallet challenge-response login
type AuthService struct {
	tokenizer  ports.Tokenizer
	challenges ports.ChallengeStore
	denylist   ports.TokenDenylist
	verifier   ports.SignatureVerifier
	sessionTTL time.Duration
	options
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	challenges ports.ChallengeStore,
	denylist ports.TokenDenylist,
	verifier ports.SignatureVerifier,
	sessionTTL time.Duration,
	opts ...Option,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		tokenizer:  tokenizer,
		challenges: challenges,
		denylist:   denylist,
		verifier:   verifier,
		sessionTTL: sessionTTL,
		options:    newOptions("auth", opts),
	}
}

// Challenge issues a fresh nonce for address, replacing any live one
func (s *AuthService) Challenge(ctx context.Context, address string) (string, error) {
	principal, err := eth.CanonicalAddress(address)
	if err != nil {
		return "", err
	}

	nonce, err := s.challenges.Issue(ctx, principal)
	s.metrics.RecordOperation(ctx, metrics.DomainAuth, "challenge", metrics.Status(err))
	if err != nil {
		return "", fmt.Errorf("failed to issue challenge: %w", err)
	}

	s.log.WithField("address", principal).Debug("challenge issued")
	return nonce, nil
}

// Peek returns the live nonce for address without consuming it
func (s *AuthService) Peek(ctx context.Context, address string) (string, error) {
	principal, err := eth.CanonicalAddress(address)
	if err != nil {
		return "", err
	}

	nonce, ok, err := s.challenges.Peek(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to read challenge: %w", err)
	}
	if !ok {
		return "", core.ErrInvalidNonce
	}
	return nonce, nil
}

// Message returns the text a wallet must sign for nonce
func (s *AuthService) Message(nonce string) string {
	return eth.NonceMessage(nonce)
}

// Verify checks a signed challenge and mints a session token. The allow-list
// gate runs first, then the challenge is consumed, then the signature is
// recovered. Any attempt that reaches the store burns the live challenge.
func (s *AuthService) Verify(ctx context.Context, address, signature, nonce string) (*LoginResult, error) {
	start := s.now()
	result, err := s.verify(ctx, address, signature, nonce)

	s.metrics.RecordOperation(ctx, metrics.DomainAuth, "verify", metrics.Status(err))
	s.metrics.RecordDuration(ctx, metrics.DomainAuth, "verify", s.now().Sub(start), metrics.Status(err))

	if err != nil {
		s.log.WithFields(logrus.Fields{
			"address": address,
			"error":   err.Error(),
		}).Warn("login rejected")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"address": result.Address,
		"role":    result.Role,
	}).Info("login accepted")
	return result, nil
}

func (s *AuthService) verify(ctx context.Context, address, signature, nonce string) (*LoginResult, error) {
	principal, err := eth.CanonicalAddress(address)
	if err != nil {
		return nil, err
	}

	role, ok := s.verifier.Authorize(principal)
	if !ok {
		if err := s.challenges.Invalidate(ctx, principal); err != nil {
			s.log.WithError(err).Warn("failed to invalidate challenge")
		}
		return nil, core.ErrUnauthorized
	}

	consumed, err := s.challenges.Consume(ctx, principal, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}
	if !consumed {
		return nil, core.ErrInvalidNonce
	}

	signer, err := s.verifier.Recover(eth.NonceMessage(nonce), signature)
	if err != nil {
		return nil, err
	}
	if signer != principal {
		return nil, core.ErrSignatureMismatch
	}

	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   principal,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return &LoginResult{
		Token:     token,
		Address:   principal,
		Role:      role,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// ValidateToken returns the session behind a bearer token. The role is
// re-read from the allow-list so removed admins lose access immediately.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, core.ErrTokenExpired
	}

	invalidated, err := s.denylist.IsTokenInvalidated(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	role, ok := s.verifier.Authorize(session.Address)
	if !ok {
		return nil, core.ErrUnauthorized
	}
	session.Role = role

	return session, nil
}

// Logout deny-lists a session token until it would have expired
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	remaining := session.ExpiresAt.Sub(s.now())
	if remaining < minDenylistTTL {
		remaining = minDenylistTTL
	}

	if err := s.denylist.InvalidateToken(ctx, session.ID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	// The token is already deny-listed, a lost event only delays other instances.
	if err := s.eventPub.PublishLogout(ctx, session.Address, session.ID); err != nil {
		s.log.WithError(err).Warn("failed to publish logout event")
	}

	s.metrics.RecordOperation(ctx, metrics.DomainAuth, "logout", metrics.StatusSuccess)
	return nil
}

// RequireRole checks that session carries role
func RequireRole(session *core.Session, role core.Role) error {
	if session == nil {
		return core.ErrInvalidToken
	}
	if session.Role != role {
		return core.ErrForbidden
	}
	return nil
}
