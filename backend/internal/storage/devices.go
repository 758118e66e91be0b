package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/pkg/utils"
)

type DeviceControlsRepo struct {
	db *sql.DB
}

func (r *DeviceControlsRepo) scan(row interface{ Scan(...any) error }) (models.DeviceControl, error) {
	var control models.DeviceControl

	err := row.Scan(&control.ID, &control.DeviceName, &control.Status, &control.ControlledBy, &control.Value, &control.CreatedAt)

	return control, err
}

// Append records a control event. Device state is derived from the latest row
// per device, so this table is append-only.
func (r *DeviceControlsRepo) Append(ctx context.Context, deviceName string, status models.DeviceAction, controlledBy models.Controller, value float64) (models.DeviceControl, error) {
	control := models.DeviceControl{
		ID:           utils.NewUUID(),
		DeviceName:   deviceName,
		Status:       status,
		ControlledBy: controlledBy,
		Value:        value,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_controls (id, device_name, status, controlled_by, value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, control.ID, control.DeviceName, control.Status, control.ControlledBy, control.Value, control.CreatedAt)

	return control, err
}

// Latest returns the most recent control event for a device, or nil when the
// device has never been controlled.
func (r *DeviceControlsRepo) Latest(ctx context.Context, deviceName string) (*models.DeviceControl, error) {
	control, err := r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, device_name, status, controlled_by, value, created_at
		FROM device_controls
		WHERE device_name = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, deviceName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &control, nil
}

// LatestAll returns the most recent control event for every device that has
// at least one row.
func (r *DeviceControlsRepo) LatestAll(ctx context.Context) ([]models.DeviceControl, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT dc.id, dc.device_name, dc.status, dc.controlled_by, dc.value, dc.created_at
		FROM device_controls dc
		JOIN (
			SELECT device_name, MAX(created_at) AS created_at
			FROM device_controls
			GROUP BY device_name
		) latest ON latest.device_name = dc.device_name AND latest.created_at = dc.created_at
		ORDER BY dc.device_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var controls []models.DeviceControl

	for rows.Next() {
		control, err := r.scan(rows)
		if err != nil {
			return nil, err
		}

		controls = append(controls, control)
	}

	return controls, rows.Err()
}

// History returns control events newest first, optionally filtered by device.
func (r *DeviceControlsRepo) History(ctx context.Context, deviceName string, limit int) ([]models.DeviceControl, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_name, status, controlled_by, value, created_at
		FROM device_controls
		WHERE ($1 = '' OR device_name = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, deviceName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var controls []models.DeviceControl

	for rows.Next() {
		control, err := r.scan(rows)
		if err != nil {
			return nil, err
		}

		controls = append(controls, control)
	}

	return controls, rows.Err()
}
