package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs access and refresh tokens.
//
// Access tokens are RS256 and self-contained. Refresh tokens are HS256
// and paired with a revocation record: the record must be created first
// so its id can be embedded as the token's jti.
type TokenIssuer struct {
	keys          *KeySet
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	records       RevocationRepository
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(keys *KeySet, refreshSecret string, accessTTL, refreshTTL time.Duration, records RevocationRepository) *TokenIssuer {
	return &TokenIssuer{
		keys:          keys,
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		records:       records,
	}
}

// TokenPair is a freshly issued access/refresh token pair and the
// revocation record backing the refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Record       *RevocationRecord
}

// GenerateAccessToken signs an RS256 access token for the user. The kid
// header lets verifiers select the right key from the JWKS.
func (ti *TokenIssuer) GenerateAccessToken(user *User) (string, error) {
	if ti.keys == nil {
		return "", ErrNoSigningKey
	}

	now := time.Now()
	claims := AccessClaims{
		Role:      user.Role,
		Tenant:    user.TenantString(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Subject(),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ti.keys.KeyID()

	signed, err := token.SignedString(ti.keys.PrivateSigningKey())
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken signs an HS256 refresh token bound to an existing
// revocation record. The record id becomes the jti.
func (ti *TokenIssuer) GenerateRefreshToken(user *User, record *RevocationRecord) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		Role:   user.Role,
		Tenant: user.TenantString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        strconv.FormatInt(record.ID, 10),
			Subject:   user.Subject(),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, nil
}

// IssuePair creates a revocation record and signs both tokens for the
// user. The record is persisted before the refresh token is signed; a
// failure to persist means no token is issued at all.
func (ti *TokenIssuer) IssuePair(ctx context.Context, user *User) (*TokenPair, error) {
	access, err := ti.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	record, err := ti.records.Create(ctx, user.ID, time.Now().Add(ti.refreshTTL))
	if err != nil {
		return nil, fmt.Errorf("creating revocation record: %w", err)
	}

	refresh, err := ti.GenerateRefreshToken(user, record)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Record:       record,
	}, nil
}

// RefreshTTL returns the configured refresh token lifetime.
func (ti *TokenIssuer) RefreshTTL() time.Duration {
	return ti.refreshTTL
}

// AccessTTL returns the configured access token lifetime.
func (ti *TokenIssuer) AccessTTL() time.Duration {
	return ti.accessTTL
}
