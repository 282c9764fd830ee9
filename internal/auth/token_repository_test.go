package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRevocationRepository_MonotonicIDs(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	records := NewSQLiteRevocationRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "monotonic@example.com")

	var prev int64
	for i := 0; i < 5; i++ {
		record, err := records.Create(ctx, user.ID, time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if record.ID <= prev {
			t.Errorf("record id %d not greater than previous %d", record.ID, prev)
		}
		prev = record.ID
	}
}

func TestRevocationRepository_DeleteOnce(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	records := NewSQLiteRevocationRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "deleteonce@example.com")

	record, err := records.Create(ctx, user.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	if err := records.Delete(ctx, record.ID); err != nil {
		t.Fatalf("first Delete() failed: %v", err)
	}

	// Second delete of the same record reports not found. This is how a
	// replayed logout is distinguished from a fresh one.
	if err := records.Delete(ctx, record.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("second Delete() = %v, want ErrRecordNotFound", err)
	}
}

func TestRevocationRepository_GetByIDAndUser_ScopesToOwner(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	records := NewSQLiteRevocationRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice.scope@example.com")
	bob := createTestUser(t, users, "bob.scope@example.com")

	record, err := records.Create(ctx, alice.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := records.GetByIDAndUser(ctx, record.ID, alice.ID); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	if _, err := records.GetByIDAndUser(ctx, record.ID, bob.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("foreign lookup = %v, want ErrRecordNotFound", err)
	}
}

func TestRevocationRepository_DeleteAllForUser(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	records := NewSQLiteRevocationRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "deleteall@example.com")
	other := createTestUser(t, users, "deleteall.other@example.com")

	for i := 0; i < 3; i++ {
		if _, err := records.Create(ctx, user.ID, time.Now().Add(time.Hour)); err != nil {
			t.Fatal(err)
		}
	}
	kept, err := records.Create(ctx, other.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	n, err := records.DeleteAllForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("DeleteAllForUser() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d records, want 3", n)
	}

	// Other users' records are untouched.
	if _, err := records.GetByIDAndUser(ctx, kept.ID, other.ID); err != nil {
		t.Errorf("unrelated record removed: %v", err)
	}
}

func TestRevocationRepository_DeleteExpired(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	records := NewSQLiteRevocationRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "expired@example.com")

	expired, err := records.Create(ctx, user.ID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	live, err := records.Create(ctx, user.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	n, err := records.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d records, want 1", n)
	}

	if _, err := records.GetByIDAndUser(ctx, expired.ID, user.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Error("expired record survived cleanup")
	}
	if _, err := records.GetByIDAndUser(ctx, live.ID, user.ID); err != nil {
		t.Errorf("live record removed: %v", err)
	}
}

func TestRevocationRepository_CascadeOnUserDelete(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepository(db)
	records := NewSQLiteRevocationRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "cascade@example.com")
	record, err := records.Create(ctx, user.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	if err := users.Delete(ctx, user.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := records.GetByIDAndUser(ctx, record.ID, user.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Error("record survived owner deletion")
	}
}
