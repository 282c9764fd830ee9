package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim stamped into every token this service signs.
const Issuer = "auth-service"

// AccessClaims are the claims carried by an RS256 access token.
//
// The token is self-contained: sibling services authorise requests from
// these claims alone, without calling back. Tenant is the empty string
// for users with no tenant.
type AccessClaims struct {
	Role      string `json:"role"`
	Tenant    string `json:"tenant"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims carried by an HS256 refresh token.
//
// ID (jti) is the decimal id of the revocation record backing this token.
// The token is only valid while that record exists.
type RefreshClaims struct {
	Role   string `json:"role"`
	Tenant string `json:"tenant"`
	jwt.RegisteredClaims
}
