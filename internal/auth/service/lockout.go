package service

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
	"github.com/ledgerline/authd/pkg/slogx"
)

const (
	DefaultFailureThreshold  = 5
	DefaultFailureWindow     = 15 * time.Minute
	DefaultBaseLockout       = 15 * time.Minute
	DefaultMaxLockout        = 24 * time.Hour
	DefaultEscalationCooloff = time.Hour
)

// LockoutGuard tracks failed credential attempts per account and locks the
// account once the threshold is crossed inside the sliding window. Repeated
// lockouts within the cool-off period double in duration up to the cap.
type LockoutGuard struct {
	Store store.Store

	Threshold         int
	Window            time.Duration
	BaseLockout       time.Duration
	MaxLockout        time.Duration
	EscalationCooloff time.Duration
}

func (g *LockoutGuard) threshold() int {
	if g.Threshold > 0 {
		return g.Threshold
	}
	return DefaultFailureThreshold
}

func (g *LockoutGuard) window() time.Duration {
	if g.Window > 0 {
		return g.Window
	}
	return DefaultFailureWindow
}

func (g *LockoutGuard) baseLockout() time.Duration {
	if g.BaseLockout > 0 {
		return g.BaseLockout
	}
	return DefaultBaseLockout
}

func (g *LockoutGuard) maxLockout() time.Duration {
	if g.MaxLockout > 0 {
		return g.MaxLockout
	}
	return DefaultMaxLockout
}

func (g *LockoutGuard) cooloff() time.Duration {
	if g.EscalationCooloff > 0 {
		return g.EscalationCooloff
	}
	return DefaultEscalationCooloff
}

// Status reports whether the account is currently locked and until when.
func (g *LockoutGuard) Status(ctx context.Context, accountID string) (bool, time.Time, error) {
	l, err := g.Store.Lockouts().GetLockout(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}

	now := time.Now().UTC()
	if l.IsLocked(now) {
		return true, *l.LockedUntil, nil
	}
	return false, time.Time{}, nil
}

// RecordFailure registers one failed attempt. When the threshold is reached
// the account is locked and the new unlock time is returned.
func (g *LockoutGuard) RecordFailure(ctx context.Context, accountID string) (bool, time.Time, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-g.window())

	l, err := g.Store.Lockouts().IncrementFailures(ctx, accountID, cutoff, now)
	if err != nil {
		return false, time.Time{}, err
	}

	if l.Failures < g.threshold() {
		return false, time.Time{}, nil
	}

	count := 1
	if l.LockedUntil != nil && now.Sub(*l.LockedUntil) < g.cooloff() {
		count = l.LockoutCount + 1
	}

	dur := g.baseLockout()
	for i := 1; i < count; i++ {
		dur *= 2
		if dur >= g.maxLockout() {
			dur = g.maxLockout()
			break
		}
	}

	until := now.Add(dur)
	err = g.Store.Lockouts().UpsertLockout(ctx, domain.Lockout{
		AccountID:    accountID,
		Failures:     0,
		WindowStart:  now,
		LockedUntil:  &until,
		LockoutCount: count,
		LastFailure:  now,
		UpdatedAt:    now,
	})
	if err != nil {
		return false, time.Time{}, err
	}

	slogx.FromContext(ctx).Warn("account locked out",
		"account_id", accountID,
		"lockout_count", count,
		"until", until)

	return true, until, nil
}

// RecordSuccess clears the failure counter after a fully completed login.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, accountID string) error {
	return g.Store.Lockouts().ClearLockout(ctx, accountID)
}
