package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/pkg/utils"
)

type AlertsRepo struct {
	db *sql.DB
}

func (r *AlertsRepo) scan(row interface{ Scan(...any) error }) (models.Alert, error) {
	var (
		alert      models.Alert
		title      sql.NullString
		resolvedAt sql.NullTime
	)

	err := row.Scan(&alert.ID, &alert.Type, &alert.Severity, &title, &alert.Message,
		&alert.Status, &alert.AutoResolved, &resolvedAt, &alert.CreatedAt)
	alert.Title = title.String

	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}

	return alert, err
}

// Create persists a new active alert.
func (r *AlertsRepo) Create(ctx context.Context, alertType string, severity models.Severity, title, message string) (models.Alert, error) {
	alert := models.Alert{
		ID:        utils.NewUUID(),
		Type:      alertType,
		Severity:  severity,
		Title:     title,
		Message:   message,
		Status:    models.AlertActive,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (id, type, severity, title, message, status, auto_resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`, alert.ID, alert.Type, alert.Severity, nullIfEmpty(alert.Title), alert.Message, alert.Status, alert.CreatedAt)

	return alert, err
}

// ActiveByType returns the active alert of the given derived type, or nil.
// The caller relies on this for the at-most-one-active-alert invariant.
func (r *AlertsRepo) ActiveByType(ctx context.Context, alertType string) (*models.Alert, error) {
	alert, err := r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, type, severity, title, message, status, auto_resolved, resolved_at, created_at
		FROM alerts
		WHERE type = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, alertType, models.AlertActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &alert, nil
}

// Resolve transitions an alert to resolved.
func (r *AlertsRepo) Resolve(ctx context.Context, id string, autoResolved bool) (models.Alert, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
		UPDATE alerts
		SET status = $2, auto_resolved = $3, resolved_at = $4
		WHERE id = $1
		RETURNING id, type, severity, title, message, status, auto_resolved, resolved_at, created_at
	`, id, models.AlertResolved, autoResolved, time.Now().UTC()))
}

// List returns alerts newest first, optionally filtered by status.
func (r *AlertsRepo) List(ctx context.Context, status models.AlertStatus, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, severity, title, message, status, auto_resolved, resolved_at, created_at
		FROM alerts
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert

	for rows.Next() {
		alert, err := r.scan(rows)
		if err != nil {
			return nil, err
		}

		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}
