package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a temporary config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

const validConfig = `
server:
  host: "0.0.0.0"
  port: 5501
database:
  path: "/tmp/test-auth.db"
  wal_mode: true
  busy_timeout: 5
tokens:
  access_ttl: 60
  refresh_ttl: 168
  refresh_secret: "test-refresh-secret-at-least-32-chars!"
  private_key_path: "/tmp/private.pem"
cookies:
  domain: "example.test"
`

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 5501 {
		t.Errorf("Server.Port = %d, want 5501", cfg.Server.Port)
	}

	if cfg.Database.Path != "/tmp/test-auth.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test-auth.db")
	}

	if cfg.Cookies.Domain != "example.test" {
		t.Errorf("Cookies.Domain = %q, want %q", cfg.Cookies.Domain, "example.test")
	}

	// Defaults not present in the file should survive.
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
	if !cfg.Cookies.Secure {
		t.Error("Cookies.Secure should default to true")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingRefreshSecret(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
tokens:
  private_key_path: "/tmp/private.pem"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for missing refresh secret")
	}
}

func TestLoad_ShortRefreshSecret(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
tokens:
  refresh_secret: "too-short"
  private_key_path: "/tmp/private.pem"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for short refresh secret")
	}
}

func TestLoad_MissingPrivateKey(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
tokens:
  refresh_secret: "test-refresh-secret-at-least-32-chars!"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for missing private key material")
	}
}

func TestLoad_WildcardOriginRejected(t *testing.T) {
	content := `
server:
  cors:
    allowed_origins: ["*"]
database:
  path: "/tmp/test.db"
tokens:
  refresh_secret: "test-refresh-secret-at-least-32-chars!"
  private_key_path: "/tmp/private.pem"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for wildcard CORS origin")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTHSVC_DATABASE_PATH", "/tmp/env-override.db")
	t.Setenv("AUTHSVC_REFRESH_SECRET", "env-refresh-secret-at-least-32-chars!!")
	t.Setenv("AUTHSVC_COOKIE_DOMAIN", "env.example.test")
	t.Setenv("AUTHSVC_FRONTEND_ORIGIN", "https://app.example.test")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/env-override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Tokens.RefreshSecret != "env-refresh-secret-at-least-32-chars!!" {
		t.Error("Tokens.RefreshSecret should be overridden by environment")
	}
	if cfg.Cookies.Domain != "env.example.test" {
		t.Errorf("Cookies.Domain = %q, want env override", cfg.Cookies.Domain)
	}

	found := false
	for _, origin := range cfg.Server.CORS.AllowedOrigins {
		if origin == "https://app.example.test" {
			found = true
		}
	}
	if !found {
		t.Error("AUTHSVC_FRONTEND_ORIGIN should be appended to allowed origins")
	}
}

func TestTTLHelpers(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.AccessTokenTTL().Minutes(); got != 60 {
		t.Errorf("AccessTokenTTL() = %v minutes, want 60", got)
	}
	if got := cfg.RefreshTokenTTL().Hours(); got != 168 {
		t.Errorf("RefreshTokenTTL() = %v hours, want 168", got)
	}
}
