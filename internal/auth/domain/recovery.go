package domain

import "time"

// RecoveryCode is one of the single-use fallback codes issued alongside MFA
// enrolment. Only the fingerprint is stored; a used code keeps its row with
// UsedAt set so redemption attempts against it can be distinguished from
// unknown codes in audit queries.
type RecoveryCode struct {
	ID        string
	AccountID string
	CodeHash  string // SHA-256 fingerprint of the plaintext code
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsUsed reports whether the code has already been redeemed.
func (c *RecoveryCode) IsUsed() bool {
	return c.UsedAt != nil
}
