package jwtx_test

import (
	"testing"
	"time"

	"github.com/ledgerline/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestClaimsValidateExpiry(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid token", func(t *testing.T) {
		c := jwtx.NewAccessClaims("u1", "s1", nil, nil,
			5*time.Minute, exampleIssuer, nil, "", now)
		require.NoError(t, c.ValidateExpiry())
	})

	t.Run("expired token", func(t *testing.T) {
		c := jwtx.NewAccessClaims("u1", "s1", nil, nil,
			1*time.Minute, exampleIssuer, nil, "", now.Add(-10*time.Minute))
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := jwtx.NewAccessClaims("u1", "s1", nil, nil,
			5*time.Minute, exampleIssuer, nil, "", now.Add(10*time.Minute))
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrNotYetValid)
	})

	t.Run("leeway tolerates small skew", func(t *testing.T) {
		c := jwtx.NewAccessClaims("u1", "s1", nil, nil,
			1*time.Minute, exampleIssuer, nil, "", now.Add(-90*time.Second))
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrExpired)
		require.NoError(t, c.ValidateExpiryWithLeeway(time.Minute))
	})
}

func TestClaimsValidateAudience(t *testing.T) {
	c := jwtx.NewAccessClaims("u1", "s1", nil, nil,
		5*time.Minute, exampleIssuer, []string{"api", "web"}, "", time.Now().UTC())

	require.NoError(t, c.ValidateAudience(nil))
	require.NoError(t, c.ValidateAudience([]string{"api"}))
	require.NoError(t, c.ValidateAudience([]string{"mobile", "web"}))
	require.ErrorIs(t, c.ValidateAudience([]string{"mobile"}), jwtx.ErrAudience)
}

func TestNewJTIUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		jti := jwtx.NewJTI()
		require.NotEmpty(t, jti)
		require.False(t, seen[jti], "duplicate jti")
		seen[jti] = true
	}
}
