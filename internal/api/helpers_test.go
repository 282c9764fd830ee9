package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenrislabs/auth-service/internal/audit"
	"github.com/fenrislabs/auth-service/internal/auth"
	"github.com/fenrislabs/auth-service/internal/infrastructure/config"
	"github.com/fenrislabs/auth-service/internal/infrastructure/database"
	"github.com/fenrislabs/auth-service/internal/infrastructure/logging"
	"github.com/fenrislabs/auth-service/internal/tenant"
	_ "github.com/fenrislabs/auth-service/migrations"
)

const testRefreshSecret = "test-refresh-secret-0123456789abcdef"

// testEnv bundles a running test server and the stores behind it.
type testEnv struct {
	srv     *Server
	ts      *httptest.Server
	client  *http.Client
	db      *database.DB
	users   auth.UserRepository
	records auth.RevocationRepository
	tenants tenant.Repository
	audit   audit.Repository
}

// newTestEnv builds a server over a temp database and starts an
// httptest listener with a cookie jar client.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "api_test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	keys, err := auth.LoadKeySet(config.TokenConfig{PrivateKey: string(pemData)})
	if err != nil {
		t.Fatal(err)
	}

	users := auth.NewSQLiteUserRepository(db)
	records := auth.NewSQLiteRevocationRepository(db)
	tenants := tenant.NewSQLiteRepository(db)
	auditRepo := audit.NewSQLiteRepository(db)

	issuer := auth.NewTokenIssuer(keys, testRefreshSecret, time.Hour, 7*24*time.Hour, records)
	verifier := auth.NewTokenVerifier(keys, testRefreshSecret, records)

	srv, err := New(Deps{
		Config:   config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Cookies:  config.CookieConfig{Secure: false},
		Logger:   logging.Default(),
		Users:    users,
		Tenants:  tenants,
		Records:  records,
		Issuer:   issuer,
		Verifier: verifier,
		Keys:     keys,
		Audit:    auditRepo,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}

	return &testEnv{
		srv:     srv,
		ts:      ts,
		client:  &http.Client{Jar: jar},
		db:      db,
		users:   users,
		records: records,
		tenants: tenants,
		audit:   auditRepo,
	}
}

// postJSON sends a JSON POST through the env's cookie-jar client.
func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := e.client.Post(e.ts.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// get sends a GET through the env's cookie-jar client.
func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := e.client.Get(e.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// register creates an account through the API and leaves its cookies in
// the jar.
func (e *testEnv) register(t *testing.T, email, password string) userResponse {
	t.Helper()

	resp := e.postJSON(t, "/auth/register", map[string]any{
		"firstName": "Test",
		"lastName":  "User",
		"email":     email,
		"password":  password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register returned %d", resp.StatusCode)
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatal(err)
	}
	return user
}

// promote changes a user's role directly in the store. The user must log
// in again to get a token carrying the new role.
func (e *testEnv) promote(t *testing.T, userID int64, role string) {
	t.Helper()

	user, err := e.users.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	user.Role = role
	if err := e.users.Update(context.Background(), user); err != nil {
		t.Fatal(err)
	}
}

// login authenticates through the API, refreshing the jar's cookies.
func (e *testEnv) login(t *testing.T, email, password string) {
	t.Helper()

	resp := e.postJSON(t, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}
}

// mustParseURL parses a URL or fails the test.
func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

// countRecords returns the number of live revocation records.
func (e *testEnv) countRecords(t *testing.T) int {
	t.Helper()

	var count int
	err := e.db.QueryRowContext(context.Background(),
		"SELECT count(*) FROM refresh_tokens").Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	return count
}
