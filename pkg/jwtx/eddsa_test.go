package jwtx_test

import (
	"testing"
	"time"

	"github.com/ledgerline/authd/pkg/cryptox"
	"github.com/ledgerline/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://auth.example.com"

func TestEdDSASignAndVerify(t *testing.T) {
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	kid := "test-key-eddsa"

	signer, err := jwtx.NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	require.NotNil(t, signer)
	require.NoError(t, signer.Validate())
	require.Equal(t, "EdDSA", signer.Alg())
	require.Equal(t, kid, signer.KID())

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		"user-456",       // subject
		"session-eddsa1", // session ID
		[]string{"account:read", "account:write"}, // scopes
		[]string{jwtx.AMRPassword, jwtx.AMRMFA},   // AMR
		5*time.Minute,   // TTL
		exampleIssuer,   // issuer
		[]string{"api"}, // audience
		"eddsauser",     // username
		now,             // issued at time
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Build KeySet for verification
	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	// Verify the keyset has the right key
	jwks := keyset.PublicJWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)
	require.NotEmpty(t, jwks.Keys[0].X)

	verifier := jwtx.NewVerifierEdDSA(keyset, exampleIssuer, []string{"api"})

	parsedClaims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.NotNil(t, parsedClaims)

	require.Equal(t, claims.Issuer, parsedClaims.Issuer)
	require.Equal(t, claims.Subject, parsedClaims.Subject)
	require.ElementsMatch(t, claims.Audience, parsedClaims.Audience)
	require.ElementsMatch(t, claims.Scopes, parsedClaims.Scopes)
	require.ElementsMatch(t, claims.AMR, parsedClaims.AMR)
	require.Equal(t, claims.SID, parsedClaims.SID)
	require.Equal(t, claims.Username, parsedClaims.Username)
	require.NotEmpty(t, parsedClaims.ID) // JTI should be set
}

func TestEdDSAVerifyFailsForWrongIssuer(t *testing.T) {
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("k1", pemKey)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		"user-789", "session-wrong", nil, nil,
		1*time.Minute, exampleIssuer, nil, "", now,
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	// Verifier expects a different issuer
	verifier := jwtx.NewVerifierEdDSA(keyset, "wrong-issuer", []string{"api"})

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestEdDSAVerifyFailsForUnknownKey(t *testing.T) {
	pemKey1, _ := cryptox.GenerateEd25519Key()
	signer1, _ := jwtx.NewSignerEdDSA("key1", pemKey1)

	pemKey2, _ := cryptox.GenerateEd25519Key()
	signer2, _ := jwtx.NewSignerEdDSA("key2", pemKey2)

	// Token signed with key1
	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		"user-unknown", "session-key", nil, nil,
		1*time.Minute, exampleIssuer, nil, "", now,
	)
	token, _ := signer1.Sign(claims)

	// Keyset only contains key2
	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer2))

	verifier := jwtx.NewVerifierEdDSA(keyset, exampleIssuer, nil)

	_, err := verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrNoKey)
}

func TestEdDSAVerifyFailsForExpiredToken(t *testing.T) {
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("k1", pemKey)
	require.NoError(t, err)

	// Token issued far enough in the past to be expired
	issuedAt := time.Now().UTC().Add(-10 * time.Minute)
	claims := jwtx.NewAccessClaims(
		"user-exp", "session-exp", nil, nil,
		1*time.Minute, exampleIssuer, nil, "", issuedAt,
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	verifier := jwtx.NewVerifierEdDSA(keyset, exampleIssuer, nil)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestEdDSAValidateFailsForInvalidKey(t *testing.T) {
	_, err := jwtx.NewSignerEdDSA("test", []byte("not-a-pem-key"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid PEM")
}

func TestEdDSACommonVerifierAdapter(t *testing.T) {
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		"user-123", "session-adapter",
		[]string{"account:read"}, nil,
		1*time.Minute, exampleIssuer, nil,
		"adapteruser", now,
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	verifier := jwtx.NewCommonEdDSA(keyset, exampleIssuer, nil)

	// Note this returns Claims by value, not pointer
	parsedClaims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims.Issuer, parsedClaims.Issuer)
	require.Equal(t, claims.Subject, parsedClaims.Subject)
	require.ElementsMatch(t, claims.Scopes, parsedClaims.Scopes)
}

func TestJWKToPEM(t *testing.T) {
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("pem-key", pemKey)
	require.NoError(t, err)

	jwk := signer.PublicJWK()
	pemStr, err := jwk.PEM()
	require.NoError(t, err)
	require.Contains(t, pemStr, "BEGIN PUBLIC KEY")
}
