package jwtx_test

import (
	"testing"
	"time"

	"github.com/ledgerline/authd/pkg/cryptox"
	"github.com/ledgerline/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewEphemeralKeyManager(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:   exampleIssuer,
		Audience: []string{"api"},
	})
	require.NoError(t, err)
	require.True(t, km.IsReady())
	require.Equal(t, 3, km.NumSigners(), "defaults to 3 keys")

	// Sign with a random key and verify through the shared keyset
	signer := km.GetSigner()
	require.NotNil(t, signer)

	claims := jwtx.NewAccessClaims(
		"user-1", "session-1", nil, []string{jwtx.AMRPassword},
		time.Minute, exampleIssuer, []string{"api"}, "alice", time.Now().UTC(),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	parsed, err := km.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.Subject)
}

func TestNewEphemeralKeyManagerRequiresIssuer(t *testing.T) {
	_, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{})
	require.Error(t, err)
}

func TestKeyManagerRetireSigner(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  exampleIssuer,
		NumKeys: 2,
	})
	require.NoError(t, err)
	require.Equal(t, 2, km.NumSigners())

	kid := km.GetSigner().KID()
	require.NoError(t, km.RetireSignerByKid(kid))
	require.Equal(t, 1, km.NumSigners())

	// Cannot retire the last key
	last := km.GetSigner().KID()
	require.Error(t, km.RetireSignerByKid(last))

	// Retired key still verifies (grace period)
	_, err = km.KeySet.Get(kid)
	require.NoError(t, err)
}

func TestKeyManagerAddSigner(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  exampleIssuer,
		NumKeys: 1,
	})
	require.NoError(t, err)

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("rotated-key", pemKey)
	require.NoError(t, err)

	require.NoError(t, km.AddSigner(signer))
	require.Equal(t, 2, km.NumSigners())

	require.Error(t, km.AddSigner(nil))
}
