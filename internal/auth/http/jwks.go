package http

import (
	"net/http"

	"github.com/ledgerline/authd/pkg/authsdk"
	"github.com/ledgerline/authd/pkg/httpx"
	"github.com/ledgerline/authd/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks := keys.PublicJWKS()
		out := authsdk.JWKSResponse{Keys: make([]authsdk.JWK, 0, len(jwks.Keys))}
		for _, k := range jwks.Keys {
			out.Keys = append(out.Keys, authsdk.JWK(k))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}
