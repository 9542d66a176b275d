package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Booking reserves a venue for a wedding's event date.
// Bookings are never deleted; cancellation is a status change.
type Booking struct {
	ID                 string        `json:"id"`
	WeddingID          string        `json:"wedding_id"`
	VenueID            string        `json:"venue_id"`
	EventDate          time.Time     `json:"event_date"`
	Status             BookingStatus `json:"status"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// NewBooking creates a pending booking, copying the wedding's event date
func NewBooking(weddingID, venueID string, eventDate time.Time) *Booking {
	now := time.Now().UTC()
	return &Booking{
		ID:        uuid.New().String(),
		WeddingID: weddingID,
		VenueID:   venueID,
		EventDate: DateOnly(eventDate),
		Status:    BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive reports whether the booking still holds its venue date
func (b *Booking) IsActive() bool {
	return b.Status != BookingStatusCancelled
}

// IsCancellable reports whether the booking may be cancelled
func (b *Booking) IsCancellable() bool {
	return b.Status == BookingStatusConfirmed
}
