package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smartfarm-backend/backend/internal/models"
)

type RefreshTokensRepo struct {
	db *sql.DB
}

// Create stores a refresh token for a user.
func (r *RefreshTokensRepo) Create(ctx context.Context, token, userID string, expiresAt time.Time) (models.RefreshToken, error) {
	row := models.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, row.Token, row.UserID, row.ExpiresAt, row.CreatedAt)

	return row, err
}

// Get returns a stored refresh token, or nil when unknown.
func (r *RefreshTokensRepo) Get(ctx context.Context, token string) (*models.RefreshToken, error) {
	var row models.RefreshToken

	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1
	`, token).Scan(&row.Token, &row.UserID, &row.ExpiresAt, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &row, nil
}

// Delete revokes a single refresh token.
func (r *RefreshTokensRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)

	return err
}

// DeleteForUser revokes every refresh token a user holds.
func (r *RefreshTokensRepo) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)

	return err
}

// DeleteExpired prunes tokens past their expiry.
func (r *RefreshTokensRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
