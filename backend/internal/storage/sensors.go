package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/pkg/utils"
)

type SensorReadingsRepo struct {
	db *sql.DB
}

// Create persists one immutable sensor reading.
func (r *SensorReadingsRepo) Create(ctx context.Context, sensorType models.SensorType, value float64, unit string) (models.SensorReading, error) {
	reading := models.SensorReading{
		ID:         utils.NewUUID(),
		SensorType: sensorType,
		Value:      value,
		Unit:       unit,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensor_readings (id, sensor_type, value, unit, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, reading.ID, reading.SensorType, reading.Value, reading.Unit, reading.CreatedAt)

	return reading, err
}

// Latest returns the most recent reading for a sensor type, or nil if none.
func (r *SensorReadingsRepo) Latest(ctx context.Context, sensorType models.SensorType) (*models.SensorReading, error) {
	var reading models.SensorReading

	err := r.db.QueryRowContext(ctx, `
		SELECT id, sensor_type, value, unit, created_at
		FROM sensor_readings
		WHERE sensor_type = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, sensorType).Scan(&reading.ID, &reading.SensorType, &reading.Value, &reading.Unit, &reading.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &reading, nil
}

// History returns recent readings, newest first, optionally filtered by type.
func (r *SensorReadingsRepo) History(ctx context.Context, sensorType models.SensorType, limit int) ([]models.SensorReading, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sensor_type, value, unit, created_at
		FROM sensor_readings
		WHERE ($1 = '' OR sensor_type = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, string(sensorType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.SensorReading

	for rows.Next() {
		var reading models.SensorReading
		if err := rows.Scan(&reading.ID, &reading.SensorType, &reading.Value, &reading.Unit, &reading.CreatedAt); err != nil {
			return nil, err
		}

		readings = append(readings, reading)
	}

	return readings, rows.Err()
}
