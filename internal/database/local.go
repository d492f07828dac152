package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fixam/internal/models"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

// LocalStore is the sync agent's durable state: the outbox of deferred
// mutations and the offline analytics queue. Auto-increment keys give both
// queues their FIFO order.
type LocalStore struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewLocalStore(path string, logger *zerolog.Logger) (*LocalStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create local store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to local store: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS outbox (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            idempotency_key TEXT NOT NULL,
            url TEXT NOT NULL,
            method TEXT NOT NULL,
            headers TEXT NOT NULL,
            body TEXT,
            enqueued_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS analytics_events (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            payload TEXT NOT NULL,
            occurred_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return nil, fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	logger.Info().Str("path", path).Msg("local store initialized")
	return &LocalStore{DB: db, logger: logger}, nil
}

func (s *LocalStore) InsertOutboxEntry(ctx context.Context, entry *models.OutboxEntry) error {
	headers, err := json.Marshal(entry.Headers)
	if err != nil {
		return fmt.Errorf("failed to encode headers: %w", err)
	}

	var body sql.NullString
	if entry.Body != nil {
		body = sql.NullString{String: *entry.Body, Valid: true}
	}

	now := time.Now()
	result, err := s.ExecContext(ctx,
		`INSERT INTO outbox (idempotency_key, url, method, headers, body, enqueued_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		entry.IdempotencyKey, entry.URL, entry.Method, string(headers), body, now)
	if err != nil {
		return fmt.Errorf("failed to insert outbox entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	entry.EnqueuedAt = now

	return nil
}

// ListOutboxEntries returns queued entries oldest-first.
func (s *LocalStore) ListOutboxEntries(ctx context.Context, limit int) ([]*models.OutboxEntry, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, idempotency_key, url, method, headers, body, enqueued_at
         FROM outbox ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.OutboxEntry
	for rows.Next() {
		e := &models.OutboxEntry{}
		var headers string
		var body sql.NullString
		if err := rows.Scan(&e.ID, &e.IdempotencyKey, &e.URL, &e.Method, &headers, &body, &e.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		if err := json.Unmarshal([]byte(headers), &e.Headers); err != nil {
			return nil, fmt.Errorf("failed to decode headers: %w", err)
		}
		if body.Valid {
			e.Body = &body.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *LocalStore) DeleteOutboxEntry(ctx context.Context, id int64) error {
	if _, err := s.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete outbox entry: %w", err)
	}
	return nil
}

func (s *LocalStore) CountOutboxEntries(ctx context.Context) (int, error) {
	var count int
	err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox entries: %w", err)
	}
	return count, nil
}

func (s *LocalStore) InsertAnalyticsEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	now := time.Now()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now
	}
	result, err := s.ExecContext(ctx,
		`INSERT INTO analytics_events (name, payload, occurred_at) VALUES (?, ?, ?)`,
		event.Name, event.Payload, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	event.ID = id

	return nil
}

func (s *LocalStore) ListAnalyticsEvents(ctx context.Context, limit int) ([]*models.AnalyticsEvent, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, name, payload, occurred_at FROM analytics_events ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics events: %w", err)
	}
	defer rows.Close()

	var eventsList []*models.AnalyticsEvent
	for rows.Next() {
		e := &models.AnalyticsEvent{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Payload, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan analytics event: %w", err)
		}
		eventsList = append(eventsList, e)
	}
	return eventsList, rows.Err()
}

func (s *LocalStore) DeleteAnalyticsEvent(ctx context.Context, id int64) error {
	if _, err := s.ExecContext(ctx, `DELETE FROM analytics_events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete analytics event: %w", err)
	}
	return nil
}
