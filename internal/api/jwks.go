package api

import (
	"net/http"
)

// jwksCacheControl lets verifiers cache the key set briefly while still
// picking up a rotation within the access token lifetime.
const jwksCacheControl = "public, max-age=600"

// handleJWKS serves the public signing keys.
//
// Sibling services fetch this once and verify access tokens offline. The
// document is built at startup; serving it is a byte copy.
func (s *Server) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", jwksCacheControl)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response
	w.Write(s.keys.JWKS())
}
