package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fenrislabs/auth-service/internal/infrastructure/database"
)

// RevocationRepository stores the records backing refresh tokens.
//
// A record is created exactly once when its token is issued and deleted
// exactly once when the token is revoked or rotated. Record ids are
// server-generated and monotonically increasing.
type RevocationRepository interface {
	// Create inserts a new record for the user and returns it with its
	// generated id.
	Create(ctx context.Context, userID int64, expiresAt time.Time) (*RevocationRecord, error)

	// GetByIDAndUser fetches a record only if it belongs to the given
	// user. Returns ErrRecordNotFound otherwise.
	GetByIDAndUser(ctx context.Context, id, userID int64) (*RevocationRecord, error)

	// Delete removes a record. Returns ErrRecordNotFound when no row was
	// deleted, so callers can tell a revocation from a replay.
	Delete(ctx context.Context, id int64) error

	// DeleteAllForUser removes every record for a user, revoking all of
	// their refresh tokens at once. Returns the number of records removed.
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)

	// DeleteExpired removes records whose expiry has passed. Housekeeping
	// only; expired tokens already fail signature validation.
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteRevocationRepository implements RevocationRepository backed by SQLite.
type SQLiteRevocationRepository struct {
	db *database.DB
}

// NewSQLiteRevocationRepository creates a new repository instance.
func NewSQLiteRevocationRepository(db *database.DB) *SQLiteRevocationRepository {
	return &SQLiteRevocationRepository{db: db}
}

// Create inserts a new revocation record and returns it with the
// database-assigned id.
func (r *SQLiteRevocationRepository) Create(ctx context.Context, userID int64, expiresAt time.Time) (*RevocationRecord, error) {
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (user_id, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		userID,
		expiresAt.UTC().Format(time.RFC3339),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting revocation record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading record id: %w", err)
	}

	return &RevocationRecord{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetByIDAndUser fetches a record scoped to its owner.
func (r *SQLiteRevocationRepository) GetByIDAndUser(ctx context.Context, id, userID int64) (*RevocationRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, expires_at, created_at, updated_at
		FROM refresh_tokens
		WHERE id = ? AND user_id = ?`,
		id, userID,
	)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying revocation record: %w", err)
	}
	return record, nil
}

// Delete removes a record by id.
func (r *SQLiteRevocationRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting revocation record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteAllForUser removes every record belonging to a user.
func (r *SQLiteRevocationRepository) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("deleting user records: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking delete result: %w", err)
	}
	return affected, nil
}

// DeleteExpired removes records whose expiry has passed.
func (r *SQLiteRevocationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ?",
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("deleting expired records: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking delete result: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*RevocationRecord, error) {
	var record RevocationRecord
	var expiresAt, createdAt, updatedAt string

	if err := row.Scan(&record.ID, &record.UserID, &expiresAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if record.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	if record.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if record.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &record, nil
}

// parseRecordID decodes a jti claim back to a record id.
func parseRecordID(jti string) (int64, error) {
	id, err := strconv.ParseInt(jti, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return id, nil
}
