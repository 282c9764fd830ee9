package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenrislabs/auth-service/internal/infrastructure/config"
	"github.com/fenrislabs/auth-service/internal/infrastructure/database"
	_ "github.com/fenrislabs/auth-service/migrations"
)

const testRefreshSecret = "test-refresh-secret-0123456789abcdef"

// testDB opens a temp-file SQLite database with the full schema applied.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "auth_test.db"),
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
	return db
}

// testKeySet generates a throwaway RSA key pair.
func testKeySet(t *testing.T) *KeySet {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating test key: %v", err)
	}

	pemData := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	ks, err := LoadKeySet(config.TokenConfig{PrivateKey: string(pemData)})
	if err != nil {
		t.Fatalf("loading test key set: %v", err)
	}
	return ks
}

// createTestUser inserts a user and returns it.
func createTestUser(t *testing.T, users UserRepository, email string) *User {
	t.Helper()

	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}

	user := &User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Role:         RoleCustomer,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

// testIssuer builds a TokenIssuer with short TTLs over the given store.
func testIssuer(t *testing.T, ks *KeySet, records RevocationRepository) *TokenIssuer {
	t.Helper()
	return NewTokenIssuer(ks, testRefreshSecret, time.Hour, 7*24*time.Hour, records)
}
