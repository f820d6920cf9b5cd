package database

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTest opens a migrated database in a per-test temp dir and closes it
// when the test ends.
func OpenTest(tb testing.TB) *sql.DB {
	tb.Helper()

	db, err := Open(Config{Path: filepath.Join(tb.TempDir(), "test.db")})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}
