package service

import (
	"context"
	"testing"

	"github.com/ledgerline/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestTokenRefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	env.seedKnownOrigin(t, account.ID, knownOrigin)

	first, err := env.login.Login(ctx, LoginRequest{
		Identifier: "alice", Password: "correct-horse-battery", Origin: knownOrigin,
	})
	require.NoError(t, err)

	second, err := env.tokens.Refresh(ctx, first.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.Tokens.RefreshToken, second.RefreshToken)
	require.NotEqual(t, first.Tokens.AccessToken, second.AccessToken)

	t.Run("replay revokes the whole family", func(t *testing.T) {
		_, err := env.tokens.Refresh(ctx, first.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidGrant)

		// The legitimately rotated descendant is dead too.
		_, err = env.tokens.Refresh(ctx, second.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})
}

func TestTokenRefreshUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.tokens.Refresh(context.Background(), "not-a-real-token")
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestTokenRevokeAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	env.seedKnownOrigin(t, account.ID, knownOrigin)

	var pairs []string
	for i := 0; i < 3; i++ {
		result, err := env.login.Login(ctx, LoginRequest{
			Identifier: "alice", Password: "correct-horse-battery", Origin: knownOrigin,
		})
		require.NoError(t, err)
		pairs = append(pairs, result.Tokens.RefreshToken)
	}

	require.NoError(t, env.tokens.RevokeAll(ctx, account.ID))

	for _, refresh := range pairs {
		_, err := env.tokens.Refresh(ctx, refresh)
		require.ErrorIs(t, err, ErrInvalidGrant)
	}
}

func TestAccessTokenClaims(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, "alice", "correct-horse-battery")
	env.seedKnownOrigin(t, account.ID, knownOrigin)

	result, err := env.login.Login(ctx, LoginRequest{
		Identifier: "alice", Password: "correct-horse-battery", Origin: knownOrigin,
	})
	require.NoError(t, err)

	claims, err := env.tokens.KeyManager.Verifier.Verify(result.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, account.ID, claims.Subject)
	require.Equal(t, "alice", claims.Username)
	require.NotEmpty(t, claims.SID)
	require.Equal(t, 1, claims.Gen)
	require.Contains(t, claims.AMR, jwtx.AMRPassword)

	t.Run("generation increments on refresh", func(t *testing.T) {
		rotated, err := env.tokens.Refresh(ctx, result.Tokens.RefreshToken)
		require.NoError(t, err)

		next, err := env.tokens.KeyManager.Verifier.Verify(rotated.AccessToken)
		require.NoError(t, err)
		require.Equal(t, 2, next.Gen)
		require.Equal(t, claims.SID, next.SID)
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		_, err := env.tokens.KeyManager.Verifier.Verify(result.Tokens.AccessToken + "x")
		require.Error(t, err)
	})
}
