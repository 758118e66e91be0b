package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"smartfarm-backend/backend/pkg/dialect"
)

// Open opens a database connection for the given dialect.
func Open(d dialect.Dialect, connString string) (*sql.DB, error) {
	db, err := sql.Open(d.Driver(), connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d, err)
	}

	return db, nil
}

// Store bundles all repositories over one database handle.
type Store struct {
	db *sql.DB

	Sensors        *SensorReadingsRepo
	Thresholds     *ThresholdsRepo
	Alerts         *AlertsRepo
	DeviceControls *DeviceControlsRepo
	ESP32          *ESP32StatusRepo
	Schedules      *SchedulesRepo
	Users          *UsersRepo
	RefreshTokens  *RefreshTokensRepo
	ActivityLogs   *ActivityLogsRepo
}

func New(db *sql.DB) *Store {
	return &Store{
		db:             db,
		Sensors:        &SensorReadingsRepo{db: db},
		Thresholds:     &ThresholdsRepo{db: db},
		Alerts:         &AlertsRepo{db: db},
		DeviceControls: &DeviceControlsRepo{db: db},
		ESP32:          &ESP32StatusRepo{db: db},
		Schedules:      &SchedulesRepo{db: db},
		Users:          &UsersRepo{db: db},
		RefreshTokens:  &RefreshTokensRepo{db: db},
		ActivityLogs:   &ActivityLogsRepo{db: db},
	}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}

	return v
}
