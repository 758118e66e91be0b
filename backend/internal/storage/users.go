package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/pkg/utils"
)

type UsersRepo struct {
	db *sql.DB
}

func (r *UsersRepo) scan(row interface{ Scan(...any) error }) (models.User, error) {
	var (
		user    models.User
		phone   sql.NullString
		address sql.NullString
	)

	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&phone, &address, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	user.Phone = phone.String
	user.Address = address.String

	return user, err
}

const userColumns = `id, username, email, password_hash, phone, address, role, is_active, created_at, updated_at`

// Create persists a new user. Callers hash the password first.
func (r *UsersRepo) Create(ctx context.Context, user models.User) (models.User, error) {
	now := time.Now().UTC()
	user.ID = utils.NewUUID()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, user.ID, user.Username, user.Email, user.PasswordHash,
		nullIfEmpty(user.Phone), nullIfEmpty(user.Address), user.Role, user.IsActive,
		user.CreatedAt, user.UpdatedAt)

	return user, err
}

// Get returns a user by id.
func (r *UsersRepo) Get(ctx context.Context, id string) (models.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id))
}

// ByUsername returns the user with the given username, or nil.
func (r *UsersRepo) ByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := r.scan(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE username = $1
	`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// ByEmail returns the user with the given email, or nil.
func (r *UsersRepo) ByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.scan(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// All returns every user ordered by creation time.
func (r *UsersRepo) All(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User

	for rows.Next() {
		user, err := r.scan(rows)
		if err != nil {
			return nil, err
		}

		users = append(users, user)
	}

	return users, rows.Err()
}

// UpdateProfile updates the mutable profile fields of a user.
func (r *UsersRepo) UpdateProfile(ctx context.Context, id, email, phone, address string) (models.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
		UPDATE users
		SET email = $2, phone = $3, address = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+userColumns+`
	`, id, email, nullIfEmpty(phone), nullIfEmpty(address), time.Now().UTC()))
}

// UpdatePassword stores a new password hash for a user.
func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id, passwordHash, time.Now().UTC())
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

// SetActive enables or disables a user account.
func (r *UsersRepo) SetActive(ctx context.Context, id string, active bool) (models.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
		UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1
		RETURNING `+userColumns+`
	`, id, active, time.Now().UTC()))
}

// Delete removes a user and cascades to their refresh tokens.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
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

// Count reports how many user accounts exist.
func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)

	return count, err
}
