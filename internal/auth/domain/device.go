package domain

import "time"

// TrustedDevice lets a known browser or app skip the MFA challenge.
// Both the opaque device token and the device fingerprint are stored as
// SHA-256 fingerprints; the plaintext token is only seen by the client.
type TrustedDevice struct {
	ID              string
	AccountID       string
	TokenHash       string
	FingerprintHash string
	UserAgent       string // informational, shown in the device list
	LastUsedAt      time.Time
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// IsExpired reports whether the trust grant has lapsed.
func (d *TrustedDevice) IsExpired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}
