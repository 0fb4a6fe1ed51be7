package db

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	_, err = db.Exec(`CREATE TABLE test_table (id INTEGER PRIMARY KEY, value TEXT)`)
	if err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}

	return db
}

func TestRunInTransaction_Commit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	err := RunInTransaction(ctx, db, func(txCtx context.Context) error {
		if _, ok := GetTx(txCtx); !ok {
			t.Error("Expected transaction in context")
		}

		executor := GetExecutor(txCtx, db)
		_, err := executor.ExecContext(txCtx, "INSERT INTO test_table (value) VALUES (?)", "test")
		return err
	})

	if err != nil {
		t.Fatalf("RunInTransaction failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM test_table").Scan(&count); err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row, got %d", count)
	}
}

func TestRunInTransaction_Rollback(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	err := RunInTransaction(ctx, db, func(txCtx context.Context) error {
		executor := GetExecutor(txCtx, db)
		if _, err := executor.ExecContext(txCtx, "INSERT INTO test_table (value) VALUES (?)", "test"); err != nil {
			return err
		}
		return sql.ErrTxDone
	})

	if err == nil {
		t.Fatal("Expected error from RunInTransaction")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM test_table").Scan(&count); err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 rows after rollback, got %d", count)
	}
}

func TestRunInTransaction_Nested(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	err := RunInTransaction(ctx, db, func(outerCtx context.Context) error {
		executor := GetExecutor(outerCtx, db)
		if _, err := executor.ExecContext(outerCtx, "INSERT INTO test_table (value) VALUES (?)", "outer"); err != nil {
			return err
		}

		// A nested call must join the outer transaction, not open a new one.
		return RunInTransaction(outerCtx, db, func(innerCtx context.Context) error {
			outerTx, _ := GetTx(outerCtx)
			innerTx, _ := GetTx(innerCtx)
			if outerTx != innerTx {
				t.Error("Expected nested call to reuse the outer transaction")
			}

			executor := GetExecutor(innerCtx, db)
			_, err := executor.ExecContext(innerCtx, "INSERT INTO test_table (value) VALUES (?)", "inner")
			return err
		})
	})

	if err != nil {
		t.Fatalf("RunInTransaction failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM test_table").Scan(&count); err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 rows, got %d", count)
	}
}

func TestGetExecutor_WithoutTransaction(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	executor := GetExecutor(context.Background(), db)
	if _, err := executor.ExecContext(context.Background(), "INSERT INTO test_table (value) VALUES (?)", "plain"); err != nil {
		t.Fatalf("ExecContext failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM test_table").Scan(&count); err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row, got %d", count)
	}
}
