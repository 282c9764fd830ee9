// Package audit records security-relevant events: registrations, logins,
// token rotations, revocations, and admin actions on users and tenants.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fenrislabs/auth-service/internal/infrastructure/database"
)

// Event types written by the service.
const (
	EventUserRegistered = "user.registered"
	EventUserLogin      = "user.login"
	EventUserLoginFail  = "user.login_failed"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
	EventTokenRotated   = "token.rotated"
	EventTokenRevoked   = "token.revoked"
	EventTokenRejected  = "token.rejected"
	EventTenantCreated  = "tenant.created"
	EventTenantUpdated  = "tenant.updated"
	EventTenantDeleted  = "tenant.deleted"
)

// Entry is one audit log row.
//
// ActorID is the authenticated user who caused the event, nil for
// unauthenticated events such as failed logins. SubjectID is the user the
// event is about, when that differs from the actor.
type Entry struct {
	ID        string
	EventType string
	ActorID   *int64
	SubjectID *int64
	Detail    string
	CreatedAt time.Time
}

// Filter narrows a List query. Zero values mean no restriction.
type Filter struct {
	EventType string
	ActorID   *int64
	Limit     int
	Offset    int
}

// defaultListLimit caps unpaginated List queries.
const defaultListLimit = 100

// Repository stores audit entries.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]*Entry, error)
}

// SQLiteRepository implements Repository backed by SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a new repository instance.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts an audit entry, assigning its id and timestamp.
func (r *SQLiteRepository) Record(ctx context.Context, entry *Entry) error {
	entry.ID = "aud-" + uuid.NewString()
	entry.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, event_type, actor_id, subject_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.EventType,
		nullableID(entry.ActorID),
		nullableID(entry.SubjectID),
		entry.Detail,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// List returns entries newest first, optionally filtered by event type
// and actor.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	query := `
		SELECT id, event_type, actor_id, subject_id, detail, created_at
		FROM audit_logs WHERE 1=1`
	var args []any

	if filter.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, filter.EventType)
	}
	if filter.ActorID != nil {
		query += " AND actor_id = ?"
		args = append(args, *filter.ActorID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var actorID, subjectID *int64
		var createdAt string

		if err := rows.Scan(&e.ID, &e.EventType, &actorID, &subjectID, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.ActorID = actorID
		e.SubjectID = subjectID

		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}
	return entries, nil
}

func nullableID(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
