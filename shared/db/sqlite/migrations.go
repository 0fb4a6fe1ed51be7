package sqlite

import (
	"database/sql"
	"fmt"
)

// migration is a single versioned schema change.
type migration struct {
	version int
	name    string
	up      string
}

// migrations is the ordered list of schema migrations. Each statement is
// written to be safe to run more than once.
var migrations = []migration{
	{
		version: 1,
		name:    "create_posts_table",
		up: `
			CREATE TABLE IF NOT EXISTS posts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				slug TEXT NOT NULL UNIQUE,
				content TEXT,
				excerpt TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT 'Technology',
				status TEXT NOT NULL DEFAULT 'draft',
				author TEXT NOT NULL DEFAULT 'Admin',
				author_title TEXT NOT NULL DEFAULT 'Content Creator',
				author_avatar TEXT NOT NULL DEFAULT 'AD',
				featured_image TEXT NOT NULL DEFAULT '',
				cover_image TEXT NOT NULL DEFAULT '',
				is_featured INTEGER NOT NULL DEFAULT 0,
				meta_title TEXT NOT NULL DEFAULT '',
				meta_description TEXT NOT NULL DEFAULT '',
				keywords TEXT NOT NULL DEFAULT '',
				image_alt TEXT NOT NULL DEFAULT '',
				read_time INTEGER NOT NULL DEFAULT 0,
				canonical_url TEXT NOT NULL DEFAULT '',
				seo_score INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);

			CREATE INDEX IF NOT EXISTS idx_posts_updated_at
			ON posts(updated_at DESC);
		`,
	},
	{
		version: 2,
		name:    "index_posts_status",
		up: `
			CREATE INDEX IF NOT EXISTS idx_posts_status
			ON posts(status)
			WHERE status = 'published';
		`,
	},
}

// runMigrations applies every migration newer than the recorded schema
// version, each inside its own transaction.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion := 0
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
		}

		if _, err = tx.Exec(m.up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			m.version,
			m.name,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
