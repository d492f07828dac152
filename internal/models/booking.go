package models

import "time"

type Booking struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	ClientID    int64     `json:"client_id"`
	ClientName  string    `json:"client_name"`
	ArtisanID   int64     `json:"artisan_id"`
	ArtisanName string    `json:"artisan_name"`
	Service     string    `json:"service"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"` // HH:MM, 24h
	Amount      float64   `json:"amount"`
	Payment     string    `json:"payment_method"` // cash, transfer, online
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// BookingView is the wire shape for a booking. Older SPA builds read the
// user/provider aliases, newer ones read client/artisan; both are served.
type BookingView struct {
	Booking
	// Legacy aliases kept for clients released before the party rename.
	LegacyUserID     int64 `json:"userId"`
	LegacyProviderID int64 `json:"providerId"`
}

// View attaches the legacy alias identifiers to a booking.
func (b Booking) View() BookingView {
	return BookingView{
		Booking:          b,
		LegacyUserID:     b.ClientID,
		LegacyProviderID: b.ArtisanID,
	}
}
