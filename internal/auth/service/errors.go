package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountDisabled    = errors.New("account_disabled")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrSessionExpired     = errors.New("session_expired")
	ErrInvalidOrUsedCode  = errors.New("invalid_or_used_code")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
	ErrInvalidGrant       = errors.New("invalid_grant")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrUnknownMethod      = errors.New("unknown_method")
	ErrDeviceNotTrusted   = errors.New("device_not_trusted")
	ErrSetupNotConfirmed  = errors.New("setup_not_confirmed")
	ErrMFANotEnabled      = errors.New("mfa_not_enabled")
	ErrMFAAlreadyEnabled  = errors.New("mfa_already_enabled")
)

// AccountLockedError is returned while the lockout guard holds an account
// shut. The response shape is identical whether or not the password was
// correct.
type AccountLockedError struct {
	UnlockAt time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account_locked until %s", e.UnlockAt.Format(time.RFC3339))
}

// ChallengeRequiredError is returned when a login needs a second step. The
// caller exchanges the partial token plus a code at the challenge endpoint.
type ChallengeRequiredError struct {
	PartialToken string
	Purpose      string
	Methods      []string
}

func (e *ChallengeRequiredError) Error() string {
	return "challenge_required: " + e.Purpose
}

// dedupe returns values with duplicates removed, preserving order.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
