package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fenrislabs/auth-service/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// Public signing keys for sibling services
	r.Get("/.well-known/jwks.json", s.handleJWKS)

	// Auth endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticateMiddleware)
			r.Get("/self", s.handleSelf)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.validateRefreshMiddleware)
			r.Post("/refresh", s.handleRefresh)
		})

		// Logout needs both: a valid session to act on, and the refresh
		// token naming the record to revoke.
		r.Group(func(r chi.Router) {
			r.Use(s.authenticateMiddleware)
			r.Use(s.validateRefreshMiddleware)
			r.Post("/logout", s.handleLogout)
		})
	})

	// Tenant endpoints
	r.Route("/tenants", func(r chi.Router) {
		r.Use(s.authenticateMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleAdmin, auth.RoleManager))
			r.Get("/", s.handleListTenants)
			r.Get("/{id}", s.handleGetTenant)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleAdmin))
			r.Post("/", s.handleCreateTenant)
			r.Patch("/{id}", s.handleUpdateTenant)
			r.Delete("/{id}", s.handleDeleteTenant)
		})
	})

	// User management (admin only)
	r.Route("/users", func(r chi.Router) {
		r.Use(s.authenticateMiddleware)
		r.Use(s.requireRole(auth.RoleAdmin))

		r.Get("/", s.handleListUsers)
		r.Post("/", s.handleCreateUser)
		r.Get("/{id}", s.handleGetUser)
		r.Patch("/{id}", s.handleUpdateUser)
		r.Delete("/{id}", s.handleDeleteUser)
	})

	// Audit trail (admin only)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticateMiddleware)
		r.Use(s.requireRole(auth.RoleAdmin))
		r.Get("/audit", s.handleListAudit)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
