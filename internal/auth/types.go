package auth

import (
	"errors"
	"strconv"
	"time"
)

// Roles ordered by privilege. Role checks are exact allow-lists, not a
// hierarchy.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleCustomer = "customer"
)

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleCustomer:
		return true
	}
	return false
}

// Sentinel errors returned by the auth package. Callers match with
// errors.Is to choose a response status.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrRecordNotFound     = errors.New("revocation record not found")
	ErrNoSigningKey       = errors.New("no signing key configured")
)

// User is an account in the auth service.
//
// TenantID is nil for users not bound to a tenant (admins typically).
// PasswordHash is the PHC-encoded argon2id hash and is never serialised
// to API responses.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         string
	TenantID     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subject returns the user's id encoded as a JWT subject string.
func (u *User) Subject() string {
	return strconv.FormatInt(u.ID, 10)
}

// TenantString returns the tenant id as a string, or "" when the user has
// no tenant. Access token claims carry this value.
func (u *User) TenantString() string {
	if u.TenantID == nil {
		return ""
	}
	return strconv.FormatInt(*u.TenantID, 10)
}

// RevocationRecord is the persisted half of a refresh token.
//
// The id is generated by the database and embedded in the token as its
// jti. A token whose record is gone is revoked regardless of its
// signature or expiry.
type RevocationRecord struct {
	ID        int64
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParseSubject decodes a JWT subject string back to a user id.
func ParseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return id, nil
}
