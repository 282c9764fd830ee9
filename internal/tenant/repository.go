// Package tenant stores the organisations users can belong to.
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fenrislabs/auth-service/internal/infrastructure/database"
)

// ErrTenantNotFound is returned when a tenant lookup matches no row.
var ErrTenantNotFound = errors.New("tenant not found")

// Tenant is an organisation. Users reference a tenant by id; deleting a
// tenant detaches its users rather than removing them.
type Tenant struct {
	ID        int64
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository stores tenants.
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	Delete(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository backed by SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a new repository instance.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new tenant and sets its generated id.
func (r *SQLiteRepository) Create(ctx context.Context, t *Tenant) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (name, address, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		t.Name,
		t.Address,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting tenant: %w", err)
	}

	t.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading tenant id: %w", err)
	}
	return nil
}

// GetByID fetches a tenant by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, address, created_at, updated_at
		FROM tenants WHERE id = ?`, id)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("querying tenant: %w", err)
	}
	return t, nil
}

// List returns all tenants ordered by id.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, address, created_at, updated_at
		FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tenants: %w", err)
	}
	return tenants, nil
}

// Update persists changes to an existing tenant.
func (r *SQLiteRepository) Update(ctx context.Context, t *Tenant) error {
	t.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE tenants SET name = ?, address = ?, updated_at = ? WHERE id = ?`,
		t.Name,
		t.Address,
		t.UpdatedAt.Format(time.RFC3339),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// Delete removes a tenant. Member users keep their accounts; the
// tenant_id foreign key sets their tenant to NULL.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*Tenant, error) {
	var t Tenant
	var createdAt, updatedAt string

	if err := row.Scan(&t.ID, &t.Name, &t.Address, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &t, nil
}
