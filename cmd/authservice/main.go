// Auth Service - multi-tenant authentication and authorization
//
// This is the main entry point for the auth service. It issues RS256
// access tokens and HS256 refresh tokens, enforces role-based access,
// and publishes its signing keys at /.well-known/jwks.json for sibling
// services to verify tokens offline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/fenrislabs/auth-service/migrations"

	"github.com/fenrislabs/auth-service/internal/api"
	"github.com/fenrislabs/auth-service/internal/audit"
	"github.com/fenrislabs/auth-service/internal/auth"
	"github.com/fenrislabs/auth-service/internal/infrastructure/config"
	"github.com/fenrislabs/auth-service/internal/infrastructure/database"
	"github.com/fenrislabs/auth-service/internal/infrastructure/events"
	"github.com/fenrislabs/auth-service/internal/infrastructure/logging"
	"github.com/fenrislabs/auth-service/internal/infrastructure/metrics"
	"github.com/fenrislabs/auth-service/internal/tenant"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// sweepInterval is how often expired revocation records are cleaned up.
const sweepInterval = time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting auth service",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load signing keys
	keys, err := auth.LoadKeySet(cfg.Tokens)
	if err != nil {
		return fmt.Errorf("loading signing keys: %w", err)
	}
	log.Info("signing keys loaded", "kid", keys.KeyID())

	// Repositories
	users := auth.NewSQLiteUserRepository(db)
	records := auth.NewSQLiteRevocationRepository(db)
	tenants := tenant.NewSQLiteRepository(db)
	auditRepo := audit.NewSQLiteRepository(db)

	// Seed the first admin account on an empty database
	if err := auth.SeedAdmin(ctx, users, cfg.Seed.AdminEmail, log); err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}

	// Token issuance and verification
	issuer := auth.NewTokenIssuer(keys, cfg.Tokens.RefreshSecret,
		cfg.AccessTokenTTL(), cfg.RefreshTokenTTL(), records)
	verifier := auth.NewTokenVerifier(keys, cfg.Tokens.RefreshSecret, records)

	// Connect to the event broker (optional)
	var publisher *events.Publisher
	if cfg.Events.Enabled {
		publisher, err = events.Connect(cfg.Events, log)
		if err != nil {
			return fmt.Errorf("connecting to event broker: %w", err)
		}
		defer func() {
			log.Info("disconnecting from event broker")
			if closeErr := publisher.Close(); closeErr != nil {
				log.Error("error closing event broker", "error", closeErr)
			}
		}()
		log.Info("event broker connected",
			"broker", fmt.Sprintf("%s:%d", cfg.Events.Host, cfg.Events.Port),
			"client_id", cfg.Events.ClientID,
		)
	} else {
		log.Info("event publishing disabled")
	}

	// Connect to the metrics sink (optional)
	var metricsClient *metrics.Client
	if cfg.Metrics.Enabled {
		metricsClient, err = metrics.Connect(cfg.Metrics)
		if err != nil {
			return fmt.Errorf("connecting to metrics sink: %w", err)
		}
		defer func() {
			log.Info("closing metrics sink")
			if closeErr := metricsClient.Close(); closeErr != nil {
				log.Error("error closing metrics sink", "error", closeErr)
			}
		}()
		log.Info("metrics sink connected",
			"url", cfg.Metrics.URL,
			"org", cfg.Metrics.Org,
			"bucket", cfg.Metrics.Bucket,
		)

		metricsClient.SetOnError(func(err error) {
			log.Error("metrics write error", "error", err)
		})
	} else {
		log.Info("metrics disabled")
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:   cfg.Server,
		Cookies:  cfg.Cookies,
		Logger:   log,
		Users:    users,
		Tenants:  tenants,
		Records:  records,
		Issuer:   issuer,
		Verifier: verifier,
		Keys:     keys,
		Audit:    auditRepo,
		Events:   publisher,
		Metrics:  metricsClient,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	)

	// Periodic cleanup of expired revocation records
	go sweepExpiredRecords(ctx, records, metricsClient, log)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, server, publisher, metricsClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("auth service stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AUTHSVC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AUTHSVC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// sweepExpiredRecords periodically deletes revocation records past their
// expiry. Expired tokens already fail signature checks; this keeps the
// table from growing without bound.
func sweepExpiredRecords(ctx context.Context, records auth.RevocationRepository, metricsClient *metrics.Client, log *logging.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := records.DeleteExpired(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Error("sweeping expired records", "error", err)
				}
				continue
			}
			if removed > 0 {
				log.Info("swept expired revocation records", "removed", removed)
			}
			metricsClient.RecordRevocationSweep(removed)
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
// Optional components pass their checks when nil.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server, publisher *events.Publisher, metricsClient *metrics.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := publisher.HealthCheck(ctx); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	if err := metricsClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}
