package postgres

import "embed"

//go:embed migrations/*.sql
var migrations embed.FS

// GetMigrationsFS returns the embedded PostgreSQL migrations.
func GetMigrationsFS() embed.FS {
	return migrations
}
