package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fenrislabs/auth-service/internal/infrastructure/config"
)

func testKeyPEM(t *testing.T, pkcs8 bool) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}

	var block *pem.Block
	if pkcs8 {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			t.Fatal(err)
		}
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	} else {
		block = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	}
	return string(pem.EncodeToMemory(block)), key
}

func TestLoadKeySet_InlinePKCS1(t *testing.T) {
	pemStr, key := testKeyPEM(t, false)

	ks, err := LoadKeySet(config.TokenConfig{PrivateKey: pemStr})
	if err != nil {
		t.Fatalf("LoadKeySet() failed: %v", err)
	}

	if ks.PublicKey().N.Cmp(key.PublicKey.N) != 0 {
		t.Error("loaded key does not match source key")
	}
	if ks.KeyID() == "" {
		t.Error("derived key id is empty")
	}
}

func TestLoadKeySet_PKCS8FromFile(t *testing.T) {
	pemStr, _ := testKeyPEM(t, true)

	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, []byte(pemStr), 0600); err != nil {
		t.Fatal(err)
	}

	ks, err := LoadKeySet(config.TokenConfig{PrivateKeyPath: path})
	if err != nil {
		t.Fatalf("LoadKeySet() failed: %v", err)
	}
	if ks.PrivateSigningKey() == nil {
		t.Error("private key is nil")
	}
}

func TestLoadKeySet_NoKeyMaterial(t *testing.T) {
	_, err := LoadKeySet(config.TokenConfig{})
	if !errors.Is(err, ErrNoSigningKey) {
		t.Errorf("expected ErrNoSigningKey, got %v", err)
	}
}

func TestLoadKeySet_ConfiguredKeyID(t *testing.T) {
	pemStr, _ := testKeyPEM(t, false)

	ks, err := LoadKeySet(config.TokenConfig{
		PrivateKey: pemStr,
		KeyID:      "2026-01-signing",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ks.KeyID() != "2026-01-signing" {
		t.Errorf("KeyID() = %q, want configured value", ks.KeyID())
	}
}

func TestJWKS_Derived(t *testing.T) {
	pemStr, _ := testKeyPEM(t, false)

	ks, err := LoadKeySet(config.TokenConfig{PrivateKey: pemStr, KeyID: "k1"})
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Keys []map[string]string `json:"keys"`
	}
	if err := json.Unmarshal(ks.JWKS(), &doc); err != nil {
		t.Fatalf("JWKS is not valid JSON: %v", err)
	}
	if len(doc.Keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(doc.Keys))
	}

	k := doc.Keys[0]
	for field, want := range map[string]string{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": "k1",
	} {
		if k[field] != want {
			t.Errorf("jwks %s = %q, want %q", field, k[field], want)
		}
	}
	if k["n"] == "" || k["e"] == "" {
		t.Error("jwks missing modulus or exponent")
	}
}

func TestJWKS_FromFile(t *testing.T) {
	pemStr, _ := testKeyPEM(t, false)

	doc := `{"keys":[{"kty":"RSA","kid":"external"}]}`
	path := filepath.Join(t.TempDir(), "jwks.json")
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	ks, err := LoadKeySet(config.TokenConfig{PrivateKey: pemStr, JWKSPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if string(ks.JWKS()) != doc {
		t.Error("configured JWKS file not served verbatim")
	}
}
