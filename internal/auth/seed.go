package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/fenrislabs/auth-service/internal/infrastructure/logging"
)

// seedPasswordBytes is the entropy of the generated first-boot password.
const seedPasswordBytes = 16

// SeedAdmin creates the first admin account when the user table is empty.
//
// The generated password is logged exactly once at warn level; the
// operator is expected to log in and change it. Subsequent startups with
// existing users are a no-op.
func SeedAdmin(ctx context.Context, users UserRepository, email string, logger *logging.Logger) error {
	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil
	}

	raw := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generating admin password: %w", err)
	}
	password := hex.EncodeToString(raw)

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	admin := &User{
		FirstName:    "Admin",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	logger.Warn("seeded first admin account, change this password immediately",
		"email", admin.Email,
		"password", password,
	)
	return nil
}
