package api

import (
	"net/http"
)

// requireRole restricts a route to the listed roles.
//
// It runs after authenticateMiddleware, which already answered 401 for
// missing or invalid tokens. Anything this middleware rejects, including
// a context with no claims at all, is an authorization failure: 403,
// never 401.
func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := accessClaimsFromContext(r.Context())
			if !ok {
				writeForbidden(w, "insufficient permissions")
				return
			}
			if !allowed[claims.Role] {
				s.logger.Warn("access denied",
					"subject", claims.Subject,
					"role", claims.Role,
					"path", r.URL.Path,
					"request_id", r.Context().Value(ctxKeyRequestID),
				)
				writeForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
