package sqlite

import (
	"path/filepath"
	"testing"
)

func TestRunMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database := New(&Config{Path: dbPath})
	if err := database.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer database.Close()

	db := database.DB()

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to check schema_migrations table: %v", err)
	}
	if count != 1 {
		t.Error("schema_migrations table not created")
	}

	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='posts'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to check posts table: %v", err)
	}
	if count != 1 {
		t.Error("posts table not created")
	}

	for _, idx := range []string{"idx_posts_slug", "idx_posts_updated_at", "idx_posts_status"} {
		err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to check index %s: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("%s index not created", idx)
		}
	}

	var version int
	var name string
	err = db.QueryRow("SELECT version, name FROM schema_migrations WHERE version = 1").Scan(&version, &name)
	if err != nil {
		t.Fatalf("Failed to query schema_migrations: %v", err)
	}
	if name != "create_posts_table" {
		t.Errorf("name = %q, want %q", name, "create_posts_table")
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database := New(&Config{Path: dbPath})
	if err := database.Connect(); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reconnecting runs the migration pass again; nothing should change.
	database = New(&Config{Path: dbPath})
	if err := database.Connect(); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	defer database.Close()

	var applied int
	err := database.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied)
	if err != nil {
		t.Fatalf("Failed to query schema_migrations: %v", err)
	}
	if applied != len(migrations) {
		t.Errorf("applied migrations = %d, want %d", applied, len(migrations))
	}
}
