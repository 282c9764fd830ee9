package auth

import (
	"context"
	"errors"
	"testing"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "create@example.com")
	if user.ID == 0 {
		t.Fatal("Create() did not set the user id")
	}

	got, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Email != "create@example.com" || got.Role != RoleCustomer {
		t.Errorf("got %+v", got)
	}
}

func TestUserRepository_EmailCaseInsensitive(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	ctx := context.Background()

	createTestUser(t, users, "Mixed.Case@Example.COM")

	got, err := users.GetByEmail(ctx, "mixed.case@example.com")
	if err != nil {
		t.Fatalf("lowercase lookup failed: %v", err)
	}
	if got.Email != "mixed.case@example.com" {
		t.Errorf("stored email = %q, want lowercased", got.Email)
	}

	if _, err := users.GetByEmail(ctx, "MIXED.CASE@EXAMPLE.COM"); err != nil {
		t.Errorf("uppercase lookup failed: %v", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	ctx := context.Background()

	createTestUser(t, users, "dupe@example.com")

	dupe := &User{
		FirstName:    "Other",
		LastName:     "Person",
		Email:        "dupe@example.com",
		PasswordHash: "$argon2id$fake",
		Role:         RoleCustomer,
	}
	if err := users.Create(ctx, dupe); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate Create() = %v, want ErrEmailExists", err)
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "update@example.com")
	user.FirstName = "Renamed"
	user.Role = RoleManager

	if err := users.Update(ctx, user); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	got, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.FirstName != "Renamed" || got.Role != RoleManager {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestUserRepository_UpdateMissing(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)

	ghost := &User{ID: 9999, Email: "ghost@example.com", Role: RoleCustomer}
	if err := users.Update(context.Background(), ghost); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update() on missing user = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "delete@example.com")

	if err := users.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := users.GetByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() after delete = %v, want ErrUserNotFound", err)
	}
	if err := users.Delete(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second Delete() = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_ListAndCount(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		createTestUser(t, users, email)
	}

	list, err := users.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("List() returned %d users, want 3", len(list))
	}

	count, err := users.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}
