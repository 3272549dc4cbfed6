package service

import (
	"context"
	"time"

	"github.com/ledgerline/authd/internal/auth/store"
	"github.com/ledgerline/authd/pkg/slogx"
)

const (
	DefaultHousekeepingInterval = 5 * time.Minute
	DefaultAttemptRetention     = 90 * 24 * time.Hour
	DefaultUnconfirmedMethodAge = 24 * time.Hour
)

// Housekeeper periodically sweeps expired ephemeral state: partial sessions,
// challenge codes, trusted devices, refresh tokens, stale unconfirmed MFA
// methods and old audit rows.
type Housekeeper struct {
	Store store.Store

	Interval             time.Duration
	AttemptRetention     time.Duration
	UnconfirmedMethodAge time.Duration
}

func (h *Housekeeper) interval() time.Duration {
	if h.Interval > 0 {
		return h.Interval
	}
	return DefaultHousekeepingInterval
}

func (h *Housekeeper) attemptRetention() time.Duration {
	if h.AttemptRetention > 0 {
		return h.AttemptRetention
	}
	return DefaultAttemptRetention
}

func (h *Housekeeper) unconfirmedMethodAge() time.Duration {
	if h.UnconfirmedMethodAge > 0 {
		return h.UnconfirmedMethodAge
	}
	return DefaultUnconfirmedMethodAge
}

// Run sweeps on a ticker until the context is cancelled. One sweep runs
// immediately at startup.
func (h *Housekeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval())
	defer ticker.Stop()

	h.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. Individual failures are logged and do not
// stop the remaining steps.
func (h *Housekeeper) Sweep(ctx context.Context) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"partial_sessions", h.Store.PartialSessions().DeleteExpiredPartialSessions},
		{"challenge_codes", h.Store.ChallengeCodes().DeleteExpiredChallengeCodes},
		{"trusted_devices", h.Store.TrustedDevices().DeleteExpiredTrustedDevices},
		{"refresh_tokens", h.Store.RefreshTokens().DeleteExpiredRefreshTokens},
		{"login_attempts", func(ctx context.Context) error {
			return h.Store.LoginAttempts().DeleteAttemptsBefore(ctx, now.Add(-h.attemptRetention()))
		}},
		{"unconfirmed_methods", func(ctx context.Context) error {
			return h.Store.MFAMethods().DeleteUnconfirmedBefore(ctx, now.Add(-h.unconfirmedMethodAge()))
		}},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			log.Error("housekeeping step failed", "step", step.name, "error", err)
		}
	}
}
