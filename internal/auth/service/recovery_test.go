package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoveryGenerateRequiresMFA(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "alice", "correct-horse-battery")

	_, err := env.recovery.Generate(context.Background(), account.ID, "correct-horse-battery")
	require.ErrorIs(t, err, ErrMFANotEnabled)
}

func TestRecoveryGenerateReplacesBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	_, firstBatch := enrollTOTP(t, env, account.ID)

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.recovery.Generate(ctx, account.ID, "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	secondBatch, err := env.recovery.Generate(ctx, account.ID, "correct-horse-battery")
	require.NoError(t, err)
	require.Len(t, secondBatch, DefaultRecoveryCodeCount)
	require.NotEqual(t, firstBatch, secondBatch)

	// The old batch died with the regeneration.
	require.ErrorIs(t, env.recovery.Redeem(ctx, account.ID, firstBatch[0]), ErrInvalidOrUsedCode)
	require.NoError(t, env.recovery.Redeem(ctx, account.ID, secondBatch[0]))
}

func TestRecoveryRedeemSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	_, codes := enrollTOTP(t, env, account.ID)

	require.NoError(t, env.recovery.Redeem(ctx, account.ID, codes[0]))
	require.ErrorIs(t, env.recovery.Redeem(ctx, account.ID, codes[0]), ErrInvalidOrUsedCode)

	// Siblings are unaffected.
	require.NoError(t, env.recovery.Redeem(ctx, account.ID, codes[1]))

	remaining, err := env.recovery.Remaining(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, DefaultRecoveryCodeCount-2, remaining)
}

func TestRecoveryRedeemUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	enrollTOTP(t, env, account.ID)

	require.ErrorIs(t, env.recovery.Redeem(ctx, account.ID, "made-up-code"), ErrInvalidOrUsedCode)
}
