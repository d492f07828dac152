package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fixam/internal/apperrors"
	"fixam/internal/models"
)

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	var payload sql.NullString
	if n.Payload != nil {
		raw, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode notification payload: %w", err)
		}
		payload = sql.NullString{String: string(raw), Valid: true}
	}

	query := `INSERT INTO notifications (user_id, title, message, type, read, payload, created_at)
              VALUES (?, ?, ?, ?, 0, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, n.UserID, n.Title, n.Message, n.Type, payload, now)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	n.CreatedAt = now

	return nil
}

func (db *DB) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	query := `SELECT id, user_id, title, message, type, read, read_at, payload, created_at
              FROM notifications WHERE id = ?`
	n, err := scanNotification(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (db *DB) ListNotificationsForUser(ctx context.Context, userID int64) ([]*models.Notification, error) {
	query := `SELECT id, user_id, title, message, type, read, read_at, payload, created_at
              FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead sets the read flag and timestamp. Marking an already
// read notification is a no-op that still succeeds.
func (db *DB) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	n, err := db.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperrors.ErrNotFound
	}
	if n.Read {
		return nil
	}

	query := `UPDATE notifications SET read = 1, read_at = ? WHERE id = ? AND read = 0`
	if _, err := db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks the user's unread notifications and returns
// how many changed. Zero changes is still success.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	query := `UPDATE notifications SET read = 1, read_at = ? WHERE user_id = ? AND read = 0`
	result, err := db.ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var readAt sql.NullTime
	var payload sql.NullString
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &readAt, &payload, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	if payload.Valid && payload.String != "" {
		var p models.NotificationPayload
		if err := json.Unmarshal([]byte(payload.String), &p); err != nil {
			return nil, fmt.Errorf("failed to decode notification payload: %w", err)
		}
		n.Payload = &p
	}
	return &n, nil
}
