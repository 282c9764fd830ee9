package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates tokens presented by clients.
//
// Access token checks are purely cryptographic. Refresh token checks
// additionally require the revocation record named by the jti to still
// exist and belong to the token's subject. Store errors fail closed: a
// token that cannot be checked against the store is treated as invalid.
type TokenVerifier struct {
	keys          *KeySet
	refreshSecret []byte
	records       RevocationRepository
}

// NewTokenVerifier creates a TokenVerifier.
func NewTokenVerifier(keys *KeySet, refreshSecret string, records RevocationRepository) *TokenVerifier {
	return &TokenVerifier{
		keys:          keys,
		refreshSecret: []byte(refreshSecret),
		records:       records,
	}
}

// VerifyAccessToken parses and validates an RS256 access token.
//
// Only RS256 is accepted; an HS256 token signed with the public key PEM
// as its secret is rejected by the method pin, not just the key check.
func (tv *TokenVerifier) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return tv.keys.PublicKey(), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	return claims, nil
}

// VerifyRefreshToken parses an HS256 refresh token and checks its
// revocation record.
//
// Returns ErrTokenRevoked when the record named by the jti is gone or
// belongs to a different user. A store failure is returned as a wrapped
// error, never as a valid result.
func (tv *TokenVerifier) VerifyRefreshToken(ctx context.Context, tokenString string) (*RefreshClaims, *RevocationRecord, error) {
	claims := &RefreshClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return tv.refreshSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	recordID, err := parseRecordID(claims.ID)
	if err != nil {
		return nil, nil, err
	}
	userID, err := ParseSubject(claims.Subject)
	if err != nil {
		return nil, nil, err
	}

	record, err := tv.records.GetByIDAndUser(ctx, recordID, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, nil, ErrTokenRevoked
		}
		// Fail closed. An unreachable store must not admit tokens.
		return nil, nil, fmt.Errorf("checking revocation record: %w", err)
	}

	return claims, record, nil
}
