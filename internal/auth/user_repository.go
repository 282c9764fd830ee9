package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fenrislabs/auth-service/internal/infrastructure/database"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// UserRepository stores user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// SQLiteUserRepository implements UserRepository backed by SQLite.
type SQLiteUserRepository struct {
	db *database.DB
}

// NewSQLiteUserRepository creates a new repository instance.
func NewSQLiteUserRepository(db *database.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at`

// Create inserts a new user. Emails are stored lowercased and must be
// unique; a duplicate returns ErrEmailExists. The user's ID field is set
// from the database on success.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	now := time.Now().UTC()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
		nullInt64(user.TenantID),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	return nil
}

// GetByID fetches a user by id.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUserRow(row)
}

// GetByEmail fetches a user by email. Lookup is case-insensitive.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?",
		strings.ToLower(email))
	return scanUserRow(row)
}

// List returns all users ordered by id.
func (r *SQLiteUserRepository) List(ctx context.Context) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// Update persists changes to an existing user.
func (r *SQLiteUserRepository) Update(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(user.Email)
	user.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET first_name = ?, last_name = ?, email = ?, password_hash = ?,
		    role = ?, tenant_id = ?, updated_at = ?
		WHERE id = ?`,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
		nullInt64(user.TenantID),
		user.UpdatedAt.Format(time.RFC3339),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user. Revocation records cascade, so every refresh
// token the user held dies with the account.
func (r *SQLiteUserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Count returns the total number of users.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

func scanUserRow(row *sql.Row) (*User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

func scanUser(row rowScanner) (*User, error) {
	var user User
	var tenantID sql.NullInt64
	var createdAt, updatedAt string

	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&tenantID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if tenantID.Valid {
		user.TenantID = &tenantID.Int64
	}

	var err error
	if user.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if user.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &user, nil
}

// nullInt64 converts an optional id to its SQL representation.
func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
