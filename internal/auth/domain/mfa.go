package domain

import "time"

// MFA method kinds.
const (
	MethodTOTP  = "totp"
	MethodEmail = "email"
	MethodSMS   = "sms"

	// MethodRecovery is accepted during challenge completion but is not an
	// enrollable method; it redeems a single-use recovery code.
	MethodRecovery = "recovery"
)

// Partial-auth session purposes.
const (
	PurposeMFARequired     = "mfa_required"
	PurposeSuspiciousLogin = "suspicious_login"
	PurposeMFASetup        = "mfa_setup"
)

// MFAMethod is an enrolled second factor for an account.
// A method only participates in challenges once confirmed.
type MFAMethod struct {
	ID          string
	AccountID   string
	Kind        string  // totp | email | sms
	Secret      *string // base32 TOTP seed (nil for delivery methods)
	Destination *string // masked email address / phone number (nil for totp)
	Primary     bool    // exactly one confirmed method per account is primary
	ConfirmedAt *time.Time
	CreatedAt   time.Time
}

// IsConfirmed reports whether the method has passed setup verification.
func (m *MFAMethod) IsConfirmed() bool {
	return m.ConfirmedAt != nil
}

// PartialAuthSession is a short-lived record bridging the two steps of a
// challenged login. The ULID token is the client's only handle on it.
type PartialAuthSession struct {
	Token       string // ULID, returned to the client
	AccountID   string
	Purpose     string // mfa_required | suspicious_login
	MethodHint  string // method kind the dispatched code belongs to, if any
	IP          string
	Fingerprint string
	UserAgent   string
	Attempts    int // failed verification attempts against this session
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// IsExpired reports whether the session has passed its TTL.
func (s *PartialAuthSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ChallengeCode is a delivered one-time code (email or SMS) bound to a
// partial-auth session or a setup flow. Only the fingerprint is stored.
type ChallengeCode struct {
	ID           string
	SessionToken string // partial session token or setup token
	MethodID     string
	CodeHash     string // SHA-256 fingerprint of the plaintext code
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// ChallengeResponse is returned when a login needs a second step.
type ChallengeResponse struct {
	PartialToken string   `json:"partial_token"`
	Purpose      string   `json:"purpose"`
	Methods      []string `json:"methods"` // available method kinds
}
