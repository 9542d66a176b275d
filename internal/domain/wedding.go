package domain

import (
	"time"

	"github.com/google/uuid"
)

// WeddingStatus represents the planning status of a wedding
type WeddingStatus string

const (
	WeddingStatusPlanning  WeddingStatus = "planning"
	WeddingStatusBooked    WeddingStatus = "booked"
	WeddingStatusCompleted WeddingStatus = "completed"
	WeddingStatusCancelled WeddingStatus = "cancelled"
)

// Wedding is the anchor for every booking. EventDate never changes once set.
type Wedding struct {
	ID         string        `json:"id"`
	ClientID   string        `json:"client_id"`
	EventDate  time.Time     `json:"event_date"`
	Location   string        `json:"location,omitempty"`
	GuestCount int           `json:"guest_count"`
	Budget     float64       `json:"budget"`
	Status     WeddingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewWedding creates a wedding in planning status
func NewWedding(clientID string, eventDate time.Time, location string, guestCount int, budget float64) *Wedding {
	now := time.Now().UTC()
	return &Wedding{
		ID:         uuid.New().String(),
		ClientID:   clientID,
		EventDate:  DateOnly(eventDate),
		Location:   location,
		GuestCount: guestCount,
		Budget:     budget,
		Status:     WeddingStatusPlanning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsOwnedBy reports whether clientID owns the wedding
func (w *Wedding) IsOwnedBy(clientID string) bool {
	return clientID != "" && w.ClientID == clientID
}
