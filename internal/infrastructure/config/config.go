package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the auth service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Tokens   TokenConfig    `yaml:"tokens"`
	Cookies  CookieConfig   `yaml:"cookies"`
	Events   EventsConfig   `yaml:"events"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
	Seed     SeedConfig     `yaml:"seed"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig    `yaml:"cors"`
}

// TimeoutConfig contains HTTP timeout settings in seconds.
type TimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains cross-origin settings. The auth cookies are credentialed,
// so the allowed origins must be an explicit list, never a wildcard.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// TokenConfig contains token issuance settings.
//
// The private key signs access tokens (RS256); it is loaded once at startup
// and never regenerated at runtime. The refresh secret signs refresh tokens
// (HS256). The revocation record TTL always equals RefreshTTL: the record
// and the token it backs expire together.
type TokenConfig struct {
	// AccessTTL is the access token lifetime in minutes.
	AccessTTL int `yaml:"access_ttl"`

	// RefreshTTL is the refresh token lifetime in hours.
	RefreshTTL int `yaml:"refresh_ttl"`

	// RefreshSecret is the pre-shared HS256 secret for refresh tokens.
	RefreshSecret string `yaml:"refresh_secret"`

	// PrivateKey is the RSA private key as inline PEM. Takes precedence
	// over PrivateKeyPath when both are set.
	PrivateKey string `yaml:"private_key"`

	// PrivateKeyPath is the filesystem path to the RSA private key PEM.
	PrivateKeyPath string `yaml:"private_key_path"`

	// JWKSPath optionally points to a pre-generated JWKS document to serve
	// from the key-set endpoint. When empty the document is derived from
	// the private key's public half at startup.
	JWKSPath string `yaml:"jwks_path"`

	// KeyID is the kid advertised in the JWKS and token headers.
	// When empty it is derived from the public key fingerprint.
	KeyID string `yaml:"key_id"`

	// JWKSURI is the externally reachable key-set URL, advertised to
	// sibling services that verify access tokens on their own.
	JWKSURI string `yaml:"jwks_uri"`
}

// CookieConfig controls the accessToken/refreshToken cookie pair.
type CookieConfig struct {
	// Domain scopes the cookies to the deployment's shared parent domain.
	Domain string `yaml:"domain"`

	// Secure marks the cookies Secure. Disable only for local development.
	Secure bool `yaml:"secure"`
}

// EventsConfig contains MQTT auth-event announcement settings.
type EventsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`
}

// MetricsConfig contains InfluxDB auth-metrics sink settings.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SeedConfig controls the first-boot admin account.
type SeedConfig struct {
	AdminEmail string `yaml:"admin_email"`
}

// minRefreshSecretLength is the minimum accepted HS256 secret length.
// Short secrets make offline brute force of captured refresh tokens viable.
const minRefreshSecretLength = 32

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The loading order is:
//  1. Default values
//  2. YAML file values
//  3. Environment variables (AUTHSVC_SECTION_KEY, e.g. AUTHSVC_SERVER_PORT)
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5501,
			Timeouts: TimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/authservice.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Tokens: TokenConfig{
			AccessTTL:  60,  // 1 hour
			RefreshTTL: 168, // 7 days
		},
		Cookies: CookieConfig{
			Secure: true,
		},
		Events: EventsConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "auth-service",
			QoS:      1,
		},
		Metrics: MetricsConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Seed: SeedConfig{
			AdminEmail: "admin@auth.local",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AUTHSVC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("AUTHSVC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("AUTHSVC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("AUTHSVC_FRONTEND_ORIGIN"); v != "" {
		cfg.Server.CORS.AllowedOrigins = append(cfg.Server.CORS.AllowedOrigins, v)
	}

	// Database
	if v := os.Getenv("AUTHSVC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Tokens - secrets and key material always come from the environment in production
	if v := os.Getenv("AUTHSVC_REFRESH_SECRET"); v != "" {
		cfg.Tokens.RefreshSecret = v
	}
	if v := os.Getenv("AUTHSVC_PRIVATE_KEY"); v != "" {
		cfg.Tokens.PrivateKey = v
	}
	if v := os.Getenv("AUTHSVC_PRIVATE_KEY_PATH"); v != "" {
		cfg.Tokens.PrivateKeyPath = v
	}
	if v := os.Getenv("AUTHSVC_JWKS_URI"); v != "" {
		cfg.Tokens.JWKSURI = v
	}

	// Cookies
	if v := os.Getenv("AUTHSVC_COOKIE_DOMAIN"); v != "" {
		cfg.Cookies.Domain = v
	}

	// Events
	if v := os.Getenv("AUTHSVC_EVENTS_PASSWORD"); v != "" {
		cfg.Events.Password = v
	}

	// Metrics
	if v := os.Getenv("AUTHSVC_METRICS_TOKEN"); v != "" {
		cfg.Metrics.Token = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Tokens.AccessTTL <= 0 {
		errs = append(errs, "tokens.access_ttl must be positive")
	}
	if c.Tokens.RefreshTTL <= 0 {
		errs = append(errs, "tokens.refresh_ttl must be positive")
	}

	// The refresh secret gates the entire revocation subsystem. An empty or
	// weak secret lets an attacker forge refresh tokens for any record id.
	if c.Tokens.RefreshSecret == "" {
		errs = append(errs, "tokens.refresh_secret is required (set AUTHSVC_REFRESH_SECRET environment variable)")
	} else if len(c.Tokens.RefreshSecret) < minRefreshSecretLength {
		errs = append(errs, "tokens.refresh_secret must be at least 32 characters")
	}

	if c.Tokens.PrivateKey == "" && c.Tokens.PrivateKeyPath == "" {
		errs = append(errs, "tokens.private_key or tokens.private_key_path is required")
	}

	for _, origin := range c.Server.CORS.AllowedOrigins {
		if origin == "*" {
			errs = append(errs, "server.cors.allowed_origins must not contain '*' (cookies are credentialed)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// AccessTokenTTL returns the access token lifetime as a Duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Tokens.AccessTTL) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime as a Duration.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.Tokens.RefreshTTL) * time.Hour
}

// ReadTimeout returns the HTTP read timeout as a Duration.
func (c *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// WriteTimeout returns the HTTP write timeout as a Duration.
func (c *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// IdleTimeout returns the HTTP idle timeout as a Duration.
func (c *ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
