// Package auth implements the token lifecycle for the auth service.
//
// Access tokens are short-lived RS256 JWTs that carry the user's identity
// and role; any service holding the public key can verify them offline.
// Refresh tokens are long-lived HS256 JWTs whose jti is the integer id of
// a revocation record in the database. The record's existence is the
// token's validity: deleting the row revokes the token. Rotation on
// refresh creates the replacement record before deleting the old one, so
// a crash mid-rotation never strands the user without a valid token.
//
// The package also provides the user store, argon2id password hashing,
// and first-boot admin seeding.
package auth
