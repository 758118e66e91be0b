package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/pkg/utils"
)

type ThresholdsRepo struct {
	db *sql.DB
}

func (r *ThresholdsRepo) scan(row interface{ Scan(...any) error }) (models.Threshold, error) {
	var (
		th        models.Threshold
		updatedBy sql.NullString
	)

	err := row.Scan(&th.ID, &th.SensorType, &th.ThresholdValue, &th.Severity,
		&th.IsActive, &updatedBy, &th.CreatedAt, &th.UpdatedAt)
	th.UpdatedBy = updatedBy.String

	return th, err
}

// All returns every threshold row, active or not, ordered by sensor type.
func (r *ThresholdsRepo) All(ctx context.Context) ([]models.Threshold, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sensor_type, threshold_value, severity, is_active, updated_by, created_at, updated_at
		FROM thresholds
		ORDER BY sensor_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var thresholds []models.Threshold

	for rows.Next() {
		th, err := r.scan(rows)
		if err != nil {
			return nil, err
		}

		thresholds = append(thresholds, th)
	}

	return thresholds, rows.Err()
}

// Active returns all active thresholds.
func (r *ThresholdsRepo) Active(ctx context.Context) ([]models.Threshold, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sensor_type, threshold_value, severity, is_active, updated_by, created_at, updated_at
		FROM thresholds
		WHERE is_active = TRUE
		ORDER BY sensor_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var thresholds []models.Threshold

	for rows.Next() {
		th, err := r.scan(rows)
		if err != nil {
			return nil, err
		}

		thresholds = append(thresholds, th)
	}

	return thresholds, rows.Err()
}

// ActiveBySensor returns the active threshold for a sensor type, or nil.
// At most one active threshold exists per sensor type (unique key).
func (r *ThresholdsRepo) ActiveBySensor(ctx context.Context, sensorType models.SensorType) (*models.Threshold, error) {
	th, err := r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, sensor_type, threshold_value, severity, is_active, updated_by, created_at, updated_at
		FROM thresholds
		WHERE sensor_type = $1 AND is_active = TRUE
	`, sensorType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &th, nil
}

// Upsert creates or replaces the threshold for a sensor type.
func (r *ThresholdsRepo) Upsert(ctx context.Context, sensorType models.SensorType, value float64, severity models.Severity, isActive bool, updatedBy string) (models.Threshold, error) {
	now := time.Now().UTC()

	return r.scan(r.db.QueryRowContext(ctx, `
		INSERT INTO thresholds (id, sensor_type, threshold_value, severity, is_active, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (sensor_type) DO UPDATE SET
			threshold_value = EXCLUDED.threshold_value,
			severity = EXCLUDED.severity,
			is_active = EXCLUDED.is_active,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING id, sensor_type, threshold_value, severity, is_active, updated_by, created_at, updated_at
	`, utils.NewUUID(), sensorType, value, severity, isActive, nullIfEmpty(updatedBy), now))
}

// Deactivate marks the threshold for a sensor type inactive.
func (r *ThresholdsRepo) Deactivate(ctx context.Context, sensorType models.SensorType, updatedBy string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE thresholds
		SET is_active = FALSE, updated_by = $2, updated_at = $3
		WHERE sensor_type = $1
	`, sensorType, nullIfEmpty(updatedBy), time.Now().UTC())
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
