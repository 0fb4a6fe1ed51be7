package db

import (
	"database/sql"
)

// Database abstracts the lifecycle of the backing store so the composition
// root can swap implementations and tests can substitute in-memory ones.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
