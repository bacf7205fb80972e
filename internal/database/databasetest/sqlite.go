// Package databasetest opens throwaway migrated SQLite databases for tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-task-api/internal/config"
	"github.com/redmonkez12/go-task-api/internal/database"
)

// NewSQLite returns a migrated SQLite-backed Bun DB in t.TempDir().
// The database is closed when the test finishes.
func NewSQLite(t testing.TB) *bun.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(ctx, db.DB, cfg.Driver); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	return db
}

// CountUsersByEmail returns how many user rows carry email. Anything other
// than 0 or 1 means the uniqueness constraint is missing.
func CountUsersByEmail(t testing.TB, db bun.IDB, email string) int {
	t.Helper()

	count, err := db.NewSelect().
		Model((*database.User)(nil)).
		Where("email = ?", email).
		Count(context.Background())
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	return count
}
