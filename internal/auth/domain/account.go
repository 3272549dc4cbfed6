package domain

import "time"

type Account struct {
	ID           string
	Username     string
	PasswordHash string     // argon2 encoded
	MFAEnabled   *time.Time // Timestamp when MFA was enabled (nullable)
	DisabledAt   *time.Time // Soft close; disabled accounts are never hard-deleted
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsDisabled reports whether the account has been soft-closed.
func (a *Account) IsDisabled() bool {
	return a.DisabledAt != nil
}

// HasMFA reports whether the account has at least one confirmed second factor.
func (a *Account) HasMFA() bool {
	return a.MFAEnabled != nil
}
