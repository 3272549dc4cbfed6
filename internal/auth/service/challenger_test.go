package service

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/pkg/idx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTOTPChallenger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	secret, _ := enrollTOTP(t, env, account.ID)

	methods, err := env.mfa.ConfirmedMethods(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, methods, 1)

	challenger := NewTOTPChallenger()
	session := domain.PartialAuthSession{Token: idx.New().String(), AccountID: account.ID}

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, challenger.Verify(ctx, account, methods[0], session, code))

	require.ErrorIs(t, challenger.Verify(ctx, account, methods[0], session, "000000"), ErrInvalidOrUsedCode)

	t.Run("method without a seed", func(t *testing.T) {
		err := challenger.Verify(ctx, account, domain.MFAMethod{Kind: domain.MethodTOTP}, session, code)
		require.ErrorIs(t, err, ErrUnknownMethod)
	})
}

func TestCodeChallengerSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	destination := "alice@example.com"
	method := domain.MFAMethod{
		ID:          idx.New().String(),
		AccountID:   account.ID,
		Kind:        domain.MethodEmail,
		Destination: &destination,
	}
	session := domain.PartialAuthSession{Token: idx.New().String(), AccountID: account.ID}

	challenger := NewCodeChallenger(env.store, &captureSender{codes: env.codes})

	require.NoError(t, challenger.Issue(ctx, account, method, session))
	code := env.waitCode(t)
	require.Len(t, code, DefaultChallengeCodeDigits)

	// One wrong guess consumes the issued code entirely.
	require.ErrorIs(t, challenger.Verify(ctx, account, method, session, "000000"), ErrInvalidOrUsedCode)
	require.ErrorIs(t, challenger.Verify(ctx, account, method, session, code), ErrInvalidOrUsedCode)
}

func TestCodeChallengerHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	destination := "alice@example.com"
	method := domain.MFAMethod{
		ID:          idx.New().String(),
		AccountID:   account.ID,
		Kind:        domain.MethodSMS,
		Destination: &destination,
	}
	session := domain.PartialAuthSession{Token: idx.New().String(), AccountID: account.ID}

	challenger := NewCodeChallenger(env.store, &captureSender{codes: env.codes})

	require.NoError(t, challenger.Issue(ctx, account, method, session))
	code := env.waitCode(t)

	require.NoError(t, challenger.Verify(ctx, account, method, session, code))

	// Consumed on success as well.
	require.ErrorIs(t, challenger.Verify(ctx, account, method, session, code), ErrInvalidOrUsedCode)
}

func TestCodeChallengerRetryMode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	destination := "alice@example.com"
	method := domain.MFAMethod{
		ID:          idx.New().String(),
		AccountID:   account.ID,
		Kind:        domain.MethodEmail,
		Destination: &destination,
	}
	session := domain.PartialAuthSession{Token: idx.New().String(), AccountID: account.ID}

	challenger := NewCodeChallenger(env.store, &captureSender{codes: env.codes})
	challenger.SingleUse = false

	require.NoError(t, challenger.Issue(ctx, account, method, session))
	code := env.waitCode(t)

	// With single-use off, a failed guess leaves the code redeemable.
	require.ErrorIs(t, challenger.Verify(ctx, account, method, session, "000000"), ErrInvalidOrUsedCode)
	require.NoError(t, challenger.Verify(ctx, account, method, session, code))
}

func TestCodeChallengerExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	destination := "alice@example.com"
	method := domain.MFAMethod{
		ID:          idx.New().String(),
		AccountID:   account.ID,
		Kind:        domain.MethodEmail,
		Destination: &destination,
	}
	session := domain.PartialAuthSession{Token: idx.New().String(), AccountID: account.ID}

	challenger := NewCodeChallenger(env.store, &captureSender{codes: env.codes})
	challenger.TTL = time.Nanosecond

	require.NoError(t, challenger.Issue(ctx, account, method, session))
	code := env.waitCode(t)

	require.ErrorIs(t, challenger.Verify(ctx, account, method, session, code), ErrInvalidOrUsedCode)
}
