package domain

import "time"

// Lockout is the per-account failure counter backing the lockout guard.
// A single row per account, updated atomically in SQL.
type Lockout struct {
	AccountID    string
	Failures     int        // failures inside the current window
	WindowStart  time.Time  // start of the sliding failure window
	LockedUntil  *time.Time // nil when not locked
	LockoutCount int        // consecutive lockouts, drives exponential backoff
	LastFailure  time.Time
	UpdatedAt    time.Time
}

// IsLocked reports whether the account is currently locked out.
func (l *Lockout) IsLocked(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}
