package migrations_test

import (
	"context"
	"testing"

	"github.com/campushunt/treasurehunt/internal/database"
	"github.com/campushunt/treasurehunt/internal/migrations"
)

func TestMigrations(t *testing.T) {
	db, err := database.Open(context.Background(), "libsql", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	// Verify all tables exist by querying sqlite_master.
	want := []string{"teams", "rounds", "clue_assignments", "hint_requests"}

	for _, table := range want {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := database.Open(context.Background(), "libsql", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
}

func TestPendingHintIndex(t *testing.T) {
	db, err := database.Open(context.Background(), "libsql", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	if err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	insert := `INSERT INTO hint_requests (id, team_id, round_number, status, created_at, data)
		VALUES (?, 't1', 1, ?, '2025-01-01T00:00:00Z', jsonb('{}'))`

	if _, err := db.Exec(insert, "h1", "pending"); err != nil {
		t.Fatalf("first pending: %v", err)
	}
	if _, err := db.Exec(insert, "h2", "pending"); err == nil {
		t.Fatal("expected second pending request to violate the unique index")
	}
	if _, err := db.Exec(insert, "h3", "approved"); err != nil {
		t.Fatalf("reviewed request should be allowed: %v", err)
	}
}
