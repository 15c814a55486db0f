package core

import "time"

// Role is the privilege level attached to an authorized principal
type Role string

const (
	// RoleAdmin may issue and revoke certificates
	RoleAdmin Role = "admin"
)

// Challenge represents an authentication challenge
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Canonical (lowercase) Ethereum address of the principal
	Nonce     string    // Random nonce to be signed
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Expired reports whether the challenge is no longer usable at now
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Session represents an authenticated principal session
type Session struct {
	ID        string    // Unique session identifier, used as the token jti
	Address   string    // Canonical (lowercase) Ethereum address of the principal
	Role      Role      // Role granted by the allow-list
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session token stops being accepted
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
