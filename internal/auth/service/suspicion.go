package service

import (
	"context"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
	"github.com/ledgerline/authd/pkg/cryptox"
)

const DefaultSuspicionLookback = 30 * 24 * time.Hour

// SuspicionDetector flags logins that arrive from an origin the account has
// never used. A login is suspicious when the device fingerprint matches no
// trusted device and the IP produced no successful login inside the lookback
// window.
type SuspicionDetector struct {
	Store    store.Store
	Lookback time.Duration
}

func (d *SuspicionDetector) lookback() time.Duration {
	if d.Lookback > 0 {
		return d.Lookback
	}
	return DefaultSuspicionLookback
}

func (d *SuspicionDetector) IsSuspicious(ctx context.Context, accountID string, origin domain.Origin) (bool, error) {
	if origin.Fingerprint != "" {
		devices, err := d.Store.TrustedDevices().ListTrustedDevices(ctx, accountID)
		if err != nil {
			return false, err
		}

		fph := cryptox.FingerprintToken(origin.Fingerprint)
		for _, dev := range devices {
			if dev.FingerprintHash == fph {
				return false, nil
			}
		}
	}

	if origin.IP != "" {
		since := time.Now().UTC().Add(-d.lookback())
		seen, err := d.Store.LoginAttempts().HasRecentSuccessFromIP(ctx, accountID, origin.IP, since)
		if err != nil {
			return false, err
		}
		if seen {
			return false, nil
		}
	}

	return true, nil
}
