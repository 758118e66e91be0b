package migrator

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/postgres"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/sqlite"

	"smartfarm-backend/backend/pkg/utils"
)

// Migrator applies embedded dbmate migrations to the configured database.
type Migrator struct {
	db *dbmate.DB
	l  *slog.Logger
}

// New creates a migrator for the given database URL. The URL scheme selects
// the dbmate driver: "sqlite:<path>" or "postgresql://...".
func New(l *slog.Logger, fs embed.FS, databaseURL string) (*Migrator, error) {
	if databaseURL == "" {
		return nil, errors.New("database URL is required")
	}

	if _, err := fs.ReadDir("migrations"); err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	db := dbmate.New(u)
	db.Strict = true
	db.FS = fs
	db.MigrationsDir = []string{"migrations"}
	db.AutoDumpSchema = false

	l = l.With(slog.String("component", "db-migrator"), slog.String("dialect", u.Scheme))
	db.Log = utils.NewSlogWriter(l)

	return &Migrator{db: db, l: l}, nil
}

// Migrate applies all pending migrations.
func (m *Migrator) Migrate() error {
	m.l.Info("Migrating database")

	if err := m.db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
