package sqlite

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/plantware/blogcms/shared/db"
	_ "modernc.org/sqlite"
)

const defaultPath = "./blogcms.db"

type Config struct {
	Path string
}

// NewConfig reads the database path from BLOGCMS_DB_PATH, falling back to
// ./blogcms.db next to the binary.
func NewConfig() *Config {
	path := os.Getenv("BLOGCMS_DB_PATH")
	if path == "" {
		path = defaultPath
	}

	return &Config{
		Path: path,
	}
}

// SQLiteDB implements db.Database over a single SQLite file.
type SQLiteDB struct {
	dbPath string
	db     *sql.DB
}

func New(cfg *Config) db.Database {
	return &SQLiteDB{
		dbPath: cfg.Path,
	}
}

// Connect opens the database, applies the pragmas we rely on, and runs any
// pending schema migrations.
func (s *SQLiteDB) Connect() error {
	if s.db != nil {
		return fmt.Errorf("database already connected")
	}

	conn, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	s.db = conn

	if err := runMigrations(conn); err != nil {
		conn.Close()
		s.db = nil
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	return err
}

// DB returns the underlying *sql.DB instance.
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}
