package service

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestDeviceTrustAndCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	origin := domain.Origin{IP: "203.0.113.7", Fingerprint: "fp-1", UserAgent: "ua"}

	token, err := env.devices.Trust(ctx, env.store, account.ID, origin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	trusted, err := env.devices.IsTrusted(ctx, account.ID, token, origin)
	require.NoError(t, err)
	require.True(t, trusted)

	t.Run("wrong fingerprint", func(t *testing.T) {
		other := origin
		other.Fingerprint = "fp-2"
		trusted, err := env.devices.IsTrusted(ctx, account.ID, token, other)
		require.NoError(t, err)
		require.False(t, trusted)
	})

	t.Run("unknown token", func(t *testing.T) {
		trusted, err := env.devices.IsTrusted(ctx, account.ID, "bogus-token", origin)
		require.NoError(t, err)
		require.False(t, trusted)
	})

	t.Run("empty inputs", func(t *testing.T) {
		trusted, err := env.devices.IsTrusted(ctx, account.ID, "", origin)
		require.NoError(t, err)
		require.False(t, trusted)

		trusted, err = env.devices.IsTrusted(ctx, account.ID, token, domain.Origin{})
		require.NoError(t, err)
		require.False(t, trusted)
	})

	t.Run("fingerprint required to trust", func(t *testing.T) {
		_, err := env.devices.Trust(ctx, env.store, account.ID, domain.Origin{IP: "203.0.113.7"})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestDeviceRollingExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	origin := domain.Origin{IP: "203.0.113.7", Fingerprint: "fp-1"}

	token, err := env.devices.Trust(ctx, env.store, account.ID, origin)
	require.NoError(t, err)

	devices, err := env.devices.List(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	before := devices[0].ExpiresAt

	time.Sleep(10 * time.Millisecond)

	trusted, err := env.devices.IsTrusted(ctx, account.ID, token, origin)
	require.NoError(t, err)
	require.True(t, trusted)

	devices, err = env.devices.List(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.True(t, devices[0].ExpiresAt.After(before))
}

func TestDeviceExpiredTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.devices.TTL = time.Nanosecond

	account := env.register(t, "alice", "correct-horse-battery")
	origin := domain.Origin{IP: "203.0.113.7", Fingerprint: "fp-1"}

	token, err := env.devices.Trust(ctx, env.store, account.ID, origin)
	require.NoError(t, err)

	trusted, err := env.devices.IsTrusted(ctx, account.ID, token, origin)
	require.NoError(t, err)
	require.False(t, trusted)
}

func TestDeviceRevoke(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	origin := domain.Origin{IP: "203.0.113.7", Fingerprint: "fp-1"}

	token, err := env.devices.Trust(ctx, env.store, account.ID, origin)
	require.NoError(t, err)

	devices, err := env.devices.List(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)

	require.NoError(t, env.devices.Revoke(ctx, account.ID, devices[0].ID))

	trusted, err := env.devices.IsTrusted(ctx, account.ID, token, origin)
	require.NoError(t, err)
	require.False(t, trusted)

	t.Run("revoking twice", func(t *testing.T) {
		err := env.devices.Revoke(ctx, account.ID, devices[0].ID)
		require.ErrorIs(t, err, ErrDeviceNotTrusted)
	})

	t.Run("cannot revoke another account's device", func(t *testing.T) {
		other := env.register(t, "mallory", "correct-horse-battery")
		otherToken, err := env.devices.Trust(ctx, env.store, other.ID, origin)
		require.NoError(t, err)
		_ = otherToken

		others, err := env.devices.List(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, others, 1)

		err = env.devices.Revoke(ctx, account.ID, others[0].ID)
		require.ErrorIs(t, err, ErrDeviceNotTrusted)
	})
}
