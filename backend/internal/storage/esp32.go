package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smartfarm-backend/backend/internal/models"
)

type ESP32StatusRepo struct {
	db *sql.DB
}

// Get returns the stored status row for a controller, or nil when the
// controller has never reported.
func (r *ESP32StatusRepo) Get(ctx context.Context, deviceID string) (*models.ESP32Status, error) {
	var (
		status    models.ESP32Status
		ipAddress sql.NullString
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT device_id, status, last_seen, ip_address, updated_at
		FROM esp32_status
		WHERE device_id = $1
	`, deviceID).Scan(&status.DeviceID, &status.Status, &status.LastSeen, &ipAddress, &status.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	status.IPAddress = ipAddress.String

	return &status, nil
}

// Upsert records the controller's current status. lastSeen is only advanced
// for online transitions so an offline row keeps the last real contact time.
func (r *ESP32StatusRepo) Upsert(ctx context.Context, deviceID, status, ipAddress string) (models.ESP32Status, error) {
	now := time.Now().UTC()

	row := models.ESP32Status{
		DeviceID:  deviceID,
		Status:    status,
		LastSeen:  now,
		IPAddress: ipAddress,
		UpdatedAt: now,
	}

	if status == "online" {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO esp32_status (device_id, status, last_seen, ip_address, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (device_id) DO UPDATE SET
				status = EXCLUDED.status,
				last_seen = EXCLUDED.last_seen,
				ip_address = COALESCE(EXCLUDED.ip_address, esp32_status.ip_address),
				updated_at = EXCLUDED.updated_at
		`, deviceID, status, now, nullIfEmpty(ipAddress), now)

		return row, err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO esp32_status (device_id, status, last_seen, ip_address, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, deviceID, status, now, nullIfEmpty(ipAddress), now)

	return row, err
}
