// Package testhelpers provides shared fixtures for package tests.
package testhelpers

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap/zaptest"

	"safespace/internal/repository"
)

// NewSQLiteDB opens a migrated SQLite database in a temporary directory. The
// database is closed when the test finishes.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()

	logger := zaptest.NewLogger(t)
	db, err := repository.NewDB(repository.DriverSQLite, filepath.Join(t.TempDir(), "safespace.db"), logger)
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := repository.MigrateDB(db, logger); err != nil {
		t.Fatalf("failed to migrate sqlite database: %v", err)
	}
	return db
}
