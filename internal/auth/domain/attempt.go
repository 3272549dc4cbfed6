package domain

import "time"

// Login attempt outcomes.
const (
	AttemptSuccess        = "success"
	AttemptBadCredentials = "bad_credentials"
	AttemptBadCode        = "bad_code"
	AttemptChallenged     = "challenged"
	AttemptLocked         = "locked"
)

// Origin describes where a login request came from.
type Origin struct {
	IP          string
	Fingerprint string // client-supplied device fingerprint, may be empty
	UserAgent   string
}

// LoginAttempt is the audit record for one authentication attempt.
// Successful attempts also feed the suspicious-login heuristic.
type LoginAttempt struct {
	ID          string
	AccountID   string
	IP          string
	Fingerprint string
	UserAgent   string
	Outcome     string // success | bad_credentials | bad_code | challenged | locked
	CreatedAt   time.Time
}
