// Package storagetest opens throwaway in-memory databases for tests.
package storagetest

import (
	"strings"
	"testing"

	"smartfarm-backend/backend/internal/database/sqlite"
	"smartfarm-backend/backend/internal/storage"
	"smartfarm-backend/backend/pkg/dialect"
)

// NewStore returns a Store backed by a fresh in-memory SQLite database with
// the full schema applied.
func NewStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.Open(dialect.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	fs := sqlite.GetMigrationsFS()

	entries, err := fs.ReadDir("migrations")
	if err != nil {
		t.Fatalf("failed to read migrations: %v", err)
	}

	for _, entry := range entries {
		raw, err := fs.ReadFile("migrations/" + entry.Name())
		if err != nil {
			t.Fatalf("failed to read migration %s: %v", entry.Name(), err)
		}

		up, _, _ := strings.Cut(string(raw), "-- migrate:down")

		up = strings.TrimPrefix(up, "-- migrate:up")
		if _, err := db.Exec(up); err != nil {
			t.Fatalf("failed to apply migration %s: %v", entry.Name(), err)
		}
	}

	return storage.New(db)
}
