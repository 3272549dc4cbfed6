package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
	"github.com/ledgerline/authd/pkg/cryptox"
	"github.com/ledgerline/authd/pkg/idx"
	"github.com/ledgerline/authd/pkg/slogx"
)

const DefaultDeviceTrustTTL = 30 * 24 * time.Hour

// DeviceService remembers devices that completed a challenge so subsequent
// logins from them can skip MFA. The browser holds an opaque token; we store
// its fingerprint next to a hash of the device fingerprint.
type DeviceService struct {
	Store store.Store
	TTL   time.Duration
}

func (s *DeviceService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultDeviceTrustTTL
}

// Trust registers the origin's device and returns the plaintext device token
// exactly once. st lets challenge completion call this inside its tx.
func (s *DeviceService) Trust(ctx context.Context, st store.Store, accountID string, origin domain.Origin) (string, error) {
	if origin.Fingerprint == "" {
		return "", ErrInvalidRequest
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("generate device token: %w", err)
	}

	now := time.Now().UTC()
	err = st.TrustedDevices().CreateTrustedDevice(ctx, domain.TrustedDevice{
		ID:              idx.New().String(),
		AccountID:       accountID,
		TokenHash:       cryptox.FingerprintToken(token),
		FingerprintHash: cryptox.FingerprintToken(origin.Fingerprint),
		UserAgent:       origin.UserAgent,
		LastUsedAt:      now,
		ExpiresAt:       now.Add(s.ttl()),
		CreatedAt:       now,
	})
	if err != nil {
		return "", fmt.Errorf("store trusted device: %w", err)
	}

	return token, nil
}

// IsTrusted checks the presented device token against the account. The token
// must resolve to an unexpired record AND the fingerprint must match; a hit
// rolls the expiry forward.
func (s *DeviceService) IsTrusted(ctx context.Context, accountID, deviceToken string, origin domain.Origin) (bool, error) {
	if deviceToken == "" || origin.Fingerprint == "" {
		return false, nil
	}

	dev, err := s.Store.TrustedDevices().GetTrustedDeviceByTokenHash(ctx, accountID, cryptox.FingerprintToken(deviceToken))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if dev.FingerprintHash != cryptox.FingerprintToken(origin.Fingerprint) {
		slogx.FromContext(ctx).Warn("device token presented with mismatched fingerprint",
			"account_id", accountID, "device_id", dev.ID)
		return false, nil
	}

	now := time.Now().UTC()
	if err := s.Store.TrustedDevices().TouchTrustedDevice(ctx, dev.ID, now, now.Add(s.ttl())); err != nil {
		return false, err
	}

	return true, nil
}

// List returns the account's live trusted devices.
func (s *DeviceService) List(ctx context.Context, accountID string) ([]domain.TrustedDevice, error) {
	return s.Store.TrustedDevices().ListTrustedDevices(ctx, accountID)
}

// Revoke deletes one trusted device. The next login from it will be
// challenged again.
func (s *DeviceService) Revoke(ctx context.Context, accountID, deviceID string) error {
	err := s.Store.TrustedDevices().DeleteTrustedDevice(ctx, accountID, deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrDeviceNotTrusted
	}
	return err
}
