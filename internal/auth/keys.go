package auth

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"

	"github.com/fenrislabs/auth-service/internal/infrastructure/config"
)

// KeySet holds the RSA key pair used for access token signing, plus the
// serialised JWKS document served at /.well-known/jwks.json.
type KeySet struct {
	privateKey *rsa.PrivateKey
	keyID      string
	jwks       []byte
}

// LoadKeySet builds a KeySet from configuration.
//
// The private key may be given inline (PEM text) or as a file path; inline
// wins when both are set. The key id defaults to a fingerprint of the
// public key so it is stable across restarts. If a pre-built JWKS file is
// configured it is served verbatim, otherwise the document is derived from
// the public key.
func LoadKeySet(cfg config.TokenConfig) (*KeySet, error) {
	pemData, err := keyMaterial(cfg)
	if err != nil {
		return nil, err
	}

	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, err
	}

	kid := cfg.KeyID
	if kid == "" {
		kid = fingerprint(&key.PublicKey)
	}

	ks := &KeySet{
		privateKey: key,
		keyID:      kid,
	}

	if cfg.JWKSPath != "" {
		doc, err := os.ReadFile(cfg.JWKSPath)
		if err != nil {
			return nil, fmt.Errorf("reading jwks file: %w", err)
		}
		ks.jwks = doc
	} else {
		doc, err := buildJWKS(&key.PublicKey, kid)
		if err != nil {
			return nil, err
		}
		ks.jwks = doc
	}

	return ks, nil
}

func keyMaterial(cfg config.TokenConfig) ([]byte, error) {
	if cfg.PrivateKey != "" {
		return []byte(cfg.PrivateKey), nil
	}
	if cfg.PrivateKeyPath != "" {
		data, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading private key file: %w", err)
		}
		return data, nil
	}
	return nil, ErrNoSigningKey
}

// parsePrivateKey accepts PKCS#1 ("RSA PRIVATE KEY") and PKCS#8
// ("PRIVATE KEY") PEM blocks.
func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in key material")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PKCS#1 key: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PKCS#8 key: %w", err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signing key is not RSA")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

// fingerprint returns a short stable key id derived from the public key
// modulus.
func fingerprint(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}

// PrivateSigningKey returns the RSA private key for access token signing.
func (ks *KeySet) PrivateSigningKey() *rsa.PrivateKey {
	return ks.privateKey
}

// PublicKey returns the RSA public key for access token verification.
func (ks *KeySet) PublicKey() *rsa.PublicKey {
	return &ks.privateKey.PublicKey
}

// KeyID returns the kid stamped into access token headers and the JWKS.
func (ks *KeySet) KeyID() string {
	return ks.keyID
}

// JWKS returns the JSON Web Key Set document for the HTTP endpoint.
func (ks *KeySet) JWKS() []byte {
	return ks.jwks
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

func buildJWKS(pub *rsa.PublicKey, kid string) ([]byte, error) {
	doc := jwksDocument{
		Keys: []jwk{{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: kid,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding jwks: %w", err)
	}
	return data, nil
}
