package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fixam/internal/apperrors"
	"fixam/internal/models"
)

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (name, role, phone, city, api_token, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		user.Name, user.Role, user.Phone, user.City, user.APIToken, now, now)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now

	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, name, role, phone, city, api_token, created_at, updated_at
              FROM users WHERE id = ?`
	return scanUser(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT id, name, role, phone, city, api_token, created_at, updated_at
              FROM users WHERE api_token = ?`
	return scanUser(db.QueryRowContext(ctx, query, token))
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var token sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Role, &u.Phone, &u.City, &token, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.APIToken = token.String
	return &u, nil
}
