package tenant

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fenrislabs/auth-service/internal/auth"
	"github.com/fenrislabs/auth-service/internal/infrastructure/database"
	_ "github.com/fenrislabs/auth-service/migrations"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "tenant_test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func TestRepository_CRUD(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	tn := &Tenant{Name: "Acme", Address: "1 Main St"}
	if err := repo.Create(ctx, tn); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if tn.ID == 0 {
		t.Fatal("Create() did not set id")
	}

	got, err := repo.GetByID(ctx, tn.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Name != "Acme" || got.Address != "1 Main St" {
		t.Errorf("got %+v", got)
	}

	got.Name = "Acme Corp"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	updated, err := repo.GetByID(ctx, tn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Acme Corp" {
		t.Errorf("update not persisted: %+v", updated)
	}

	if err := repo.Delete(ctx, tn.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, tn.ID); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("GetByID() after delete = %v, want ErrTenantNotFound", err)
	}
}

func TestRepository_List(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	for _, name := range []string{"One", "Two", "Three"} {
		if err := repo.Create(ctx, &Tenant{Name: name, Address: "addr"}); err != nil {
			t.Fatal(err)
		}
	}

	tenants, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(tenants) != 3 {
		t.Errorf("List() returned %d tenants, want 3", len(tenants))
	}
}

func TestRepository_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, 404); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("GetByID() = %v, want ErrTenantNotFound", err)
	}
	if err := repo.Update(ctx, &Tenant{ID: 404}); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("Update() = %v, want ErrTenantNotFound", err)
	}
	if err := repo.Delete(ctx, 404); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("Delete() = %v, want ErrTenantNotFound", err)
	}
}

func TestRepository_DeleteDetachesUsers(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	users := auth.NewSQLiteUserRepository(db)
	ctx := context.Background()

	tn := &Tenant{Name: "Detach", Address: "addr"}
	if err := repo.Create(ctx, tn); err != nil {
		t.Fatal(err)
	}

	user := &auth.User{
		FirstName:    "Member",
		LastName:     "User",
		Email:        "member@example.com",
		PasswordHash: "$argon2id$fake",
		Role:         auth.RoleManager,
		TenantID:     &tn.ID,
	}
	if err := users.Create(ctx, user); err != nil {
		t.Fatal(err)
	}

	if err := repo.Delete(ctx, tn.ID); err != nil {
		t.Fatal(err)
	}

	// The member survives, detached from the deleted tenant.
	got, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("member deleted with tenant: %v", err)
	}
	if got.TenantID != nil {
		t.Errorf("member still references deleted tenant %d", *got.TenantID)
	}
}
