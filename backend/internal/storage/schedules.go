package storage

import (
	"context"
	"database/sql"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/pkg/utils"
)

type SchedulesRepo struct {
	db *sql.DB
}

func (r *SchedulesRepo) scan(row interface{ Scan(...any) error }) (models.Schedule, error) {
	var (
		schedule models.Schedule
		days     string
	)

	err := row.Scan(&schedule.ID, &schedule.Name, &schedule.DeviceName, &schedule.Action,
		&schedule.StartTime, &schedule.EndTime, &days, &schedule.Enabled,
		&schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		return schedule, err
	}

	schedule.DaysOfWeek, err = utils.FromJSON[[]int]([]byte(days))

	return schedule, err
}

// Create persists a new schedule and returns it with generated fields set.
func (r *SchedulesRepo) Create(ctx context.Context, schedule models.Schedule) (models.Schedule, error) {
	now := time.Now().UTC()
	schedule.ID = utils.NewUUID()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	if schedule.DaysOfWeek == nil {
		schedule.DaysOfWeek = []int{0, 1, 2, 3, 4, 5, 6}
	}

	days, err := utils.ToJSON(schedule.DaysOfWeek)
	if err != nil {
		return schedule, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO schedules (id, name, device_name, action, start_time, end_time, days_of_week, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, schedule.ID, schedule.Name, schedule.DeviceName, schedule.Action,
		schedule.StartTime, schedule.EndTime, string(days), schedule.Enabled,
		schedule.CreatedAt, schedule.UpdatedAt)

	return schedule, err
}

// Update replaces all mutable fields of an existing schedule.
func (r *SchedulesRepo) Update(ctx context.Context, schedule models.Schedule) (models.Schedule, error) {
	schedule.UpdatedAt = time.Now().UTC()

	days, err := utils.ToJSON(schedule.DaysOfWeek)
	if err != nil {
		return schedule, err
	}

	return r.scan(r.db.QueryRowContext(ctx, `
		UPDATE schedules
		SET name = $2, device_name = $3, action = $4, start_time = $5, end_time = $6,
			days_of_week = $7, enabled = $8, updated_at = $9
		WHERE id = $1
		RETURNING id, name, device_name, action, start_time, end_time, days_of_week, enabled, created_at, updated_at
	`, schedule.ID, schedule.Name, schedule.DeviceName, schedule.Action,
		schedule.StartTime, schedule.EndTime, string(days), schedule.Enabled, schedule.UpdatedAt))
}

// SetEnabled toggles a schedule without touching the rest of its fields.
func (r *SchedulesRepo) SetEnabled(ctx context.Context, id string, enabled bool) (models.Schedule, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
		UPDATE schedules
		SET enabled = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, name, device_name, action, start_time, end_time, days_of_week, enabled, created_at, updated_at
	`, id, enabled, time.Now().UTC()))
}

// Get returns a single schedule by id.
func (r *SchedulesRepo) Get(ctx context.Context, id string) (models.Schedule, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, name, device_name, action, start_time, end_time, days_of_week, enabled, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`, id))
}

// All returns every schedule ordered by creation time.
func (r *SchedulesRepo) All(ctx context.Context) ([]models.Schedule, error) {
	return r.list(ctx, `
		SELECT id, name, device_name, action, start_time, end_time, days_of_week, enabled, created_at, updated_at
		FROM schedules
		ORDER BY created_at
	`)
}

// Enabled returns only schedules the engine should evaluate.
func (r *SchedulesRepo) Enabled(ctx context.Context) ([]models.Schedule, error) {
	return r.list(ctx, `
		SELECT id, name, device_name, action, start_time, end_time, days_of_week, enabled, created_at, updated_at
		FROM schedules
		WHERE enabled
		ORDER BY created_at
	`)
}

func (r *SchedulesRepo) list(ctx context.Context, query string) ([]models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []models.Schedule

	for rows.Next() {
		schedule, err := r.scan(rows)
		if err != nil {
			return nil, err
		}

		schedules = append(schedules, schedule)
	}

	return schedules, rows.Err()
}

// Delete removes a schedule. Missing ids report sql.ErrNoRows.
func (r *SchedulesRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
