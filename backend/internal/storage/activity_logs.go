package storage

import (
	"context"
	"database/sql"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/pkg/utils"
)

type ActivityLogsRepo struct {
	db *sql.DB
}

// Create appends one audit entry.
func (r *ActivityLogsRepo) Create(ctx context.Context, entry models.ActivityLog) (models.ActivityLog, error) {
	entry.ID = utils.NewUUID()
	entry.CreatedAt = time.Now().UTC()

	if entry.Status == "" {
		entry.Status = "success"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, user_id, action, resource_type, resource_id, details, ip_address, user_agent, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, entry.ID, entry.UserID, entry.Action,
		nullIfEmpty(entry.ResourceType), nullIfEmpty(entry.ResourceID), nullIfEmpty(entry.Details),
		nullIfEmpty(entry.IPAddress), nullIfEmpty(entry.UserAgent), entry.Status,
		nullIfEmpty(entry.ErrorMessage), entry.CreatedAt)

	return entry, err
}

// List returns audit entries newest first, optionally filtered by user
// and/or action.
func (r *ActivityLogsRepo) List(ctx context.Context, userID, action string, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, resource_type, resource_id, details, ip_address, user_agent, status, error_message, created_at
		FROM activity_logs
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR action = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, action, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ActivityLog

	for rows.Next() {
		var (
			entry        models.ActivityLog
			resourceType sql.NullString
			resourceID   sql.NullString
			details      sql.NullString
			ipAddress    sql.NullString
			userAgent    sql.NullString
			errorMessage sql.NullString
		)

		err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &resourceType, &resourceID,
			&details, &ipAddress, &userAgent, &entry.Status, &errorMessage, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}

		entry.ResourceType = resourceType.String
		entry.ResourceID = resourceID.String
		entry.Details = details.String
		entry.IPAddress = ipAddress.String
		entry.UserAgent = userAgent.String
		entry.ErrorMessage = errorMessage.String

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
