package audit

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fenrislabs/auth-service/internal/infrastructure/database"
	_ "github.com/fenrislabs/auth-service/migrations"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "audit_test.db"),
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

func TestRecord(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	actor := int64(7)
	entry := &Entry{
		EventType: EventTokenRevoked,
		ActorID:   &actor,
		Detail:    "record 12",
	}
	if err := repo.Record(ctx, entry); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	if !strings.HasPrefix(entry.ID, "aud-") {
		t.Errorf("entry id = %q, want aud- prefix", entry.ID)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("Record() did not set CreatedAt")
	}
}

func TestList_Filters(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	alice, bob := int64(1), int64(2)
	seed := []*Entry{
		{EventType: EventUserLogin, ActorID: &alice},
		{EventType: EventUserLogin, ActorID: &bob},
		{EventType: EventTokenRotated, ActorID: &alice},
		{EventType: EventUserLoginFail},
	}
	for _, e := range seed {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("unfiltered List() = %d entries, want 4", len(all))
	}

	logins, err := repo.List(ctx, Filter{EventType: EventUserLogin})
	if err != nil {
		t.Fatal(err)
	}
	if len(logins) != 2 {
		t.Errorf("login filter = %d entries, want 2", len(logins))
	}

	aliceEvents, err := repo.List(ctx, Filter{ActorID: &alice})
	if err != nil {
		t.Fatal(err)
	}
	if len(aliceEvents) != 2 {
		t.Errorf("actor filter = %d entries, want 2", len(aliceEvents))
	}
}

func TestList_Pagination(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Record(ctx, &Entry{EventType: EventUserLogin}); err != nil {
			t.Fatal(err)
		}
	}

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Fatalf("first page = %d entries, want 2", len(page))
	}

	next, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(next) != 2 {
		t.Fatalf("second page = %d entries, want 2", len(next))
	}
	if page[0].ID == next[0].ID {
		t.Error("pages overlap")
	}
}
