package sqlite

import "embed"

//go:embed migrations/*.sql
var migrations embed.FS

// GetMigrationsFS returns the embedded SQLite migrations.
func GetMigrationsFS() embed.FS {
	return migrations
}
