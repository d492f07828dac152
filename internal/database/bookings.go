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

const bookingColumns = `id, reference, client_id, client_name, artisan_id, artisan_name,
                 service, description, date(date), time, amount, payment_method,
                 location, status, created_at, updated_at, version`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	// Party names are denormalized at insert so listings and exports never
	// need a join against users.
	query := `INSERT INTO bookings (
				reference, client_id, client_name, artisan_id, artisan_name,
				service, description, date, time, amount, payment_method,
				location, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		booking.Reference,
		booking.ClientID,
		booking.ClientName,
		booking.ArtisanID,
		booking.ArtisanName,
		booking.Service,
		booking.Description,
		booking.Date.Format("2006-01-02"),
		booking.Time,
		booking.Amount,
		booking.Payment,
		booking.Location,
		booking.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return db.scanBookingRow(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = ?`
	return db.scanBookingRow(db.QueryRowContext(ctx, query, reference))
}

// UpdateStatusVersioned applies a compare-and-swap status update. A zero
// row count means the booking either vanished or the version moved on.
func (db *DB) UpdateStatusVersioned(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.ErrConcurrentModification
	}
	return nil
}

// ListBookingsForUser returns every booking where the user is either party,
// most recently created first.
func (db *DB) ListBookingsForUser(ctx context.Context, userID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings WHERE client_id = ? OR artisan_id = ?
              ORDER BY created_at DESC, id DESC`
	rows, err := db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

func (db *DB) ListAllBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC, id DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

func (db *DB) scanBookingRow(row *sql.Row) (*models.Booking, error) {
	var b models.Booking
	var dateStr string
	err := row.Scan(
		&b.ID, &b.Reference, &b.ClientID, &b.ClientName, &b.ArtisanID, &b.ArtisanName,
		&b.Service, &b.Description, &dateStr, &b.Time, &b.Amount, &b.Payment,
		&b.Location, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	b.Date, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		b := &models.Booking{}
		var dateStr string
		err := rows.Scan(
			&b.ID, &b.Reference, &b.ClientID, &b.ClientName, &b.ArtisanID, &b.ArtisanName,
			&b.Service, &b.Description, &dateStr, &b.Time, &b.Amount, &b.Payment,
			&b.Location, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		b.Date, _ = time.Parse("2006-01-02", dateStr)
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
