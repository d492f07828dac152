package database

import (
	"context"
	"os"
	"testing"
	"time"

	"fixam/internal/apperrors"
	"fixam/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testBooking(reference string) *models.Booking {
	return &models.Booking{
		Reference:   reference,
		ClientID:    1,
		ClientName:  "Ada",
		ArtisanID:   2,
		ArtisanName: "Musa",
		Service:     "Plumbing",
		Description: "Leaking kitchen sink",
		Date:        time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		Time:        "10:00",
		Amount:      8000,
		Payment:     models.PaymentCash,
		Location:    "Yaba, Lagos",
		Status:      models.StatusPending,
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	booking := testBooking("FXM-AAAA11111")
	require.NoError(t, db.CreateBooking(ctx, booking))
	assert.NotZero(t, booking.ID)
	assert.Equal(t, int64(1), booking.Version)

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.Reference, got.Reference)
	assert.Equal(t, booking.Service, got.Service)
	assert.Equal(t, "Ada", got.ClientName)
	assert.Equal(t, "Musa", got.ArtisanName)
	assert.Equal(t, "2026-09-15", got.Date.Format("2006-01-02"))
	assert.Equal(t, "10:00", got.Time)

	byRef, err := db.GetBookingByReference(ctx, "FXM-AAAA11111")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, byRef.ID)
}

func TestGetBookingNotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetBooking(ctx, 12345)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = db.GetBookingByReference(ctx, "FXM-ZZZZ99999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReferenceUnique(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBooking(ctx, testBooking("FXM-DUP000001")))
	err := db.CreateBooking(ctx, testBooking("FXM-DUP000001"))
	assert.Error(t, err)
}

func TestUpdateStatusVersioned(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	booking := testBooking("FXM-CAS000001")
	require.NoError(t, db.CreateBooking(ctx, booking))

	// Successful CAS bumps the version.
	require.NoError(t, db.UpdateStatusVersioned(ctx, booking.ID, 1, models.StatusConfirmed))

	updated, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	// Stale version loses.
	err = db.UpdateStatusVersioned(ctx, booking.ID, 1, models.StatusCancelled)
	assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)

	// Unknown booking loses the same way.
	err = db.UpdateStatusVersioned(ctx, 9999, 1, models.StatusCancelled)
	assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)
}

func TestListBookingsForUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	asClient := testBooking("FXM-LIST00001")
	require.NoError(t, db.CreateBooking(ctx, asClient))

	asArtisan := testBooking("FXM-LIST00002")
	asArtisan.ClientID = 7
	asArtisan.ArtisanID = 1
	require.NoError(t, db.CreateBooking(ctx, asArtisan))

	unrelated := testBooking("FXM-LIST00003")
	unrelated.ClientID = 8
	unrelated.ArtisanID = 9
	require.NoError(t, db.CreateBooking(ctx, unrelated))

	// User 1 appears on both sides; newest first.
	bookings, err := db.ListBookingsForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, asArtisan.ID, bookings[0].ID)
	assert.Equal(t, asClient.ID, bookings[1].ID)

	// Denormalized party names come back with every listed row.
	assert.Equal(t, "Ada", bookings[1].ClientName)
	assert.Equal(t, "Musa", bookings[1].ArtisanName)

	all, err := db.ListAllBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
