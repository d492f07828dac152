package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"fixam/internal/booking"
	"fixam/internal/config"
	"fixam/internal/database"
	"fixam/internal/events"
	"fixam/internal/models"
	"fixam/internal/notify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	server  *Server
	db      *database.DB
	client  *models.User
	artisan *models.User
}

func setupServer(t *testing.T) *testServer {
	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	client := &models.User{Name: "Ada", Role: models.RoleClient, Phone: "08031234567", City: "Lagos", APIToken: "client-token"}
	require.NoError(t, db.CreateUser(ctx, client))
	artisan := &models.User{Name: "Musa", Role: models.RoleArtisan, Phone: "08087654321", City: "Lagos", APIToken: "artisan-token"}
	require.NoError(t, db.CreateUser(ctx, artisan))

	dispatcher := notify.NewService(db, &logger)
	engine := booking.NewEngine(db, db, dispatcher, events.NewEventBus(), &logger)
	server := NewServer(config.ServerConfig{Port: 0}, engine, dispatcher, db, db, &logger)

	return &testServer{server: server, db: db, client: client, artisan: artisan}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	return rec
}

func validBookingBody(artisanID int64) map[string]interface{} {
	return map[string]interface{}{
		"artisan_id":     artisanID,
		"service":        "Tailoring",
		"description":    "Two agbada outfits",
		"date":           "2026-09-20",
		"time":           "14:00",
		"amount":         25000,
		"payment_method": "cash",
		"location":       "Ikeja, Lagos",
	}
}

func TestAuthRequired(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodGet, "/api/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/bookings", "wrong-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndListBookings(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bookings", "client-token", validBookingBody(ts.artisan.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.BookingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, ts.client.ID, created.LegacyUserID)
	assert.Equal(t, ts.artisan.ID, created.LegacyProviderID)

	// Both parties see the booking, names included, in their list.
	for _, token := range []string{"client-token", "artisan-token"} {
		rec = ts.do(t, http.MethodGet, "/api/bookings", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var views []models.BookingView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
		require.Len(t, views, 1)
		assert.Equal(t, "Ada", views[0].ClientName)
		assert.Equal(t, "Musa", views[0].ArtisanName)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	ts := setupServer(t)

	body := validBookingBody(ts.artisan.ID)
	body["time"] = "9am"
	body["payment_method"] = "barter"

	rec := ts.do(t, http.MethodPost, "/api/bookings", "client-token", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "time")
	assert.Contains(t, resp.Fields, "payment_method")
}

func TestSelfBookingForbidden(t *testing.T) {
	ts := setupServer(t)

	// The artisan tries to book themselves.
	rec := ts.do(t, http.MethodPost, "/api/bookings", "artisan-token", validBookingBody(ts.artisan.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBookingActionFlow(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bookings", "client-token", validBookingBody(ts.artisan.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.BookingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Client may not accept their own request.
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/bookings/%d/accept", created.ID), "client-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Artisan accepts.
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/bookings/%d/accept", created.ID), "artisan-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.BookingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, "Ada", updated.ClientName)

	// Accepting again conflicts.
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/bookings/%d/accept", created.ID), "artisan-token", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown verb.
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/bookings/%d/approve", created.ID), "artisan-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing booking.
	rec = ts.do(t, http.MethodPut, "/api/bookings/9999/accept", "artisan-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	ts := setupServer(t)

	// Creating a booking notifies the artisan.
	rec := ts.do(t, http.MethodPost, "/api/bookings", "client-token", validBookingBody(ts.artisan.ID))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/notifications", "artisan-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notifications []*models.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifications))
	require.Len(t, notifications, 1)
	assert.False(t, notifications[0].Read)

	// Mark one read; repeat is idempotent.
	path := fmt.Sprintf("/api/notifications/%d/read", notifications[0].ID)
	rec = ts.do(t, http.MethodPut, path, "artisan-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPut, path, "artisan-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The client cannot touch the artisan's notification.
	rec = ts.do(t, http.MethodPut, path, "client-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Mark-all reports the change count.
	rec = ts.do(t, http.MethodPut, "/api/notifications/read", "artisan-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var markAll struct {
		Updated int64 `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &markAll))
	assert.Equal(t, int64(0), markAll.Updated)
}

func TestCreateNotificationEndpoint(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodPost, "/api/notifications", "client-token", map[string]interface{}{
		"user_id": ts.artisan.ID,
		"title":   "Reminder",
		"message": "Job tomorrow at 09:00",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/notifications", "client-token", map[string]interface{}{
		"title": "No recipient",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportBookings(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bookings", "client-token", validBookingBody(ts.artisan.ID))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/bookings/export", "client-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, rec.Body.Len())
}

func TestRateLimit(t *testing.T) {
	ts := setupServer(t)

	logger := zerolog.New(os.Stdout)
	limited := NewServer(config.ServerConfig{
		Port:      0,
		RateLimit: config.RateLimitConfig{RPS: 1, Burst: 2},
	}, nil, notify.NewService(ts.db, &logger), ts.db, ts.db, &logger)

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
		req.Header.Set("Authorization", "Bearer client-token")
		rec := httptest.NewRecorder()
		limited.Router().ServeHTTP(rec, req)
		codes[rec.Code]++
	}

	assert.Equal(t, 2, codes[http.StatusOK])
	assert.Equal(t, 3, codes[http.StatusTooManyRequests])
}
