// Package api provides the HTTP REST API for the auth service.
//
// It exposes registration, login, token refresh, logout, the JWKS
// endpoint, and admin CRUD for users and tenants.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fenrislabs/auth-service/internal/audit"
	"github.com/fenrislabs/auth-service/internal/auth"
	"github.com/fenrislabs/auth-service/internal/infrastructure/config"
	"github.com/fenrislabs/auth-service/internal/infrastructure/events"
	"github.com/fenrislabs/auth-service/internal/infrastructure/logging"
	"github.com/fenrislabs/auth-service/internal/infrastructure/metrics"
	"github.com/fenrislabs/auth-service/internal/tenant"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
//
// Events and Metrics are optional; nil disables them without changing
// handler behaviour.
type Deps struct {
	Config   config.ServerConfig
	Cookies  config.CookieConfig
	Logger   *logging.Logger
	Users    auth.UserRepository
	Tenants  tenant.Repository
	Records  auth.RevocationRepository
	Issuer   *auth.TokenIssuer
	Verifier *auth.TokenVerifier
	Keys     *auth.KeySet
	Audit    audit.Repository
	Events   *events.Publisher
	Metrics  *metrics.Client
	Version  string
}

// Server is the HTTP server for the auth service.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.ServerConfig
	cookieCfg config.CookieConfig
	logger    *logging.Logger
	users     auth.UserRepository
	tenants   tenant.Repository
	records   auth.RevocationRepository
	issuer    *auth.TokenIssuer
	verifier  *auth.TokenVerifier
	keys      *auth.KeySet
	audit     audit.Repository
	events    *events.Publisher
	metrics   *metrics.Client
	version   string
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Records == nil {
		return nil, fmt.Errorf("revocation repository is required")
	}
	if deps.Issuer == nil || deps.Verifier == nil || deps.Keys == nil {
		return nil, fmt.Errorf("token issuer, verifier and key set are required")
	}

	return &Server{
		cfg:       deps.Config,
		cookieCfg: deps.Cookies,
		logger:    deps.Logger,
		users:     deps.Users,
		tenants:   deps.Tenants,
		records:   deps.Records,
		issuer:    deps.Issuer,
		verifier:  deps.Verifier,
		keys:      deps.Keys,
		audit:     deps.Audit,
		events:    deps.Events,
		metrics:   deps.Metrics,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; stop it with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
