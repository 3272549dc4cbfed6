package http_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/ledgerline/authd/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	out := ts.register(t, "alice", "correct-horse-battery")
	require.NotEmpty(t, out.AccountID)
	require.Equal(t, "alice", out.Username)

	session, err := ts.client.AuthenticateWithPassword(ctx, "alice", "correct-horse-battery")
	require.NoError(t, err)
	require.NotEmpty(t, session.RefreshToken())

	t.Run("duplicate username", func(t *testing.T) {
		_, err := ts.client.Register(ctx, authsdk.RegisterRequest{
			Username: "alice", Password: "correct-horse-battery",
		})
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusConflict, apiErr.StatusCode)
		require.Equal(t, authsdk.ErrorCodeUsernameTaken, apiErr.Code)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := ts.client.Register(ctx, authsdk.RegisterRequest{
			Username: "bob", Password: "short",
		})
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, apiErr.Code)
	})
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	ts.register(t, "alice", "correct-horse-battery")

	_, err := ts.client.AuthenticateWithPassword(ctx, "alice", "wrong-password")
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidCredentials, apiErr.Code)

	// Unknown usernames answer identically.
	_, err = ts.client.AuthenticateWithPassword(ctx, "nobody", "wrong-password")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, authsdk.ErrorCodeInvalidCredentials, apiErr.Code)
}

func TestLockoutEnvelope(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	ts.register(t, "alice", "correct-horse-battery")

	for i := 0; i < 4; i++ {
		_, err := ts.client.AuthenticateWithPassword(ctx, "alice", "wrong-password")
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, authsdk.ErrorCodeInvalidCredentials, apiErr.Code)
	}

	// The fifth failure trips the lockout and switches to the envelope shape.
	out, err := ts.client.Login(ctx, authsdk.LoginRequest{
		Identifier: "alice", Password: "wrong-password",
	})
	require.NoError(t, err)
	require.Equal(t, authsdk.StatusLocked, out.Status)
	require.NotEmpty(t, out.UnlockAt)

	// The correct password is refused just the same while locked.
	_, err = ts.client.AuthenticateWithPassword(ctx, "alice", "correct-horse-battery")
	var locked *authsdk.AccountLockedError
	require.ErrorAs(t, err, &locked)
	require.NotEmpty(t, locked.UnlockAt)
}

func TestSuspiciousLoginChallenge(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	// An email-style username gives the suspicion heuristic a destination
	// even before any MFA method is enrolled.
	ts.register(t, "carol@example.com", "correct-horse-battery")

	_, err := ts.client.AuthenticateWithPassword(ctx, "carol@example.com", "correct-horse-battery")
	var challenge *authsdk.ChallengeRequiredError
	require.ErrorAs(t, err, &challenge)
	require.Equal(t, "suspicious_login", challenge.Purpose)
	require.Equal(t, []string{"email"}, challenge.Methods)

	code := ts.waitCode(t)
	session, err := ts.client.CompleteChallengeSession(ctx, authsdk.ChallengeRequest{
		PartialToken: challenge.PartialToken,
		Method:       "email",
		Code:         code,
	})
	require.NoError(t, err)
	require.NotEmpty(t, session.RefreshToken())

	// The origin is familiar now, so the next login is direct.
	_, err = ts.client.AuthenticateWithPassword(ctx, "carol@example.com", "correct-horse-battery")
	require.NoError(t, err)
}

func TestChangePasswordRevokesTokens(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	ts.register(t, "alice", "correct-horse-battery")
	session, err := ts.client.AuthenticateWithPassword(ctx, "alice", "correct-horse-battery")
	require.NoError(t, err)
	refreshToken := session.RefreshToken()

	t.Run("wrong old password", func(t *testing.T) {
		err := session.ChangePassword(ctx, "wrong-password", "brand-new-password")
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, authsdk.ErrorCodeInvalidCredentials, apiErr.Code)
	})

	require.NoError(t, session.ChangePassword(ctx, "correct-horse-battery", "brand-new-password"))

	// Every refresh token died with the change.
	_, err = ts.client.Refresh(ctx, refreshToken)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, authsdk.ErrorCodeInvalidGrant, apiErr.Code)

	_, err = ts.client.AuthenticateWithPassword(ctx, "alice", "brand-new-password")
	require.NoError(t, err)
}
