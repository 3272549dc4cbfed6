package domain

import "time"

// TokenPair represents what a successful authentication returns, the
// short-lived access token (JWT) and the opaque refresh token.
type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int      `json:"expires_in"`           // seconds until expiry
	Scope        []string `json:"scope,omitempty"`
}

// RefreshToken models the stored refresh token record in the DB.
//
// Tokens belong to a family: each rotation creates a new record with the
// same family ID and an incremented generation, and marks the old one
// rotated. Presenting a rotated token is treated as replay and revokes the
// whole family.
type RefreshToken struct {
	ID         string
	AccountID  string
	TokenHash  string // deterministic fingerprint (base64url SHA-256)
	SessionID  string // Session ID (SID) that persists across rotations
	FamilyID   string // shared across all generations of one login
	Generation int
	Scopes     []string
	AMR        []string // Authentication Method Reference history
	ExpiresAt  time.Time
	RotatedAt  *time.Time // set when superseded by the next generation
	Revoked    bool
	CreatedAt  time.Time
}

// IsLive reports whether the token can still be exchanged.
func (t *RefreshToken) IsLive(now time.Time) bool {
	return !t.Revoked && t.RotatedAt == nil && now.Before(t.ExpiresAt)
}
