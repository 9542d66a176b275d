package domain

import (
	"time"

	"github.com/google/uuid"
)

// Venue is owned by a vendor and read-only to booking workflows
type Venue struct {
	ID        string    `json:"id"`
	VendorID  string    `json:"vendor_id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	BasePrice float64   `json:"base_price"`
	CreatedAt time.Time `json:"created_at"`
}

// NewVenue creates a venue
func NewVenue(vendorID, name string, capacity int, basePrice float64) *Venue {
	return &Venue{
		ID:        uuid.New().String(),
		VendorID:  vendorID,
		Name:      name,
		Capacity:  capacity,
		BasePrice: basePrice,
		CreatedAt: time.Now().UTC(),
	}
}

// AvailabilityReason tells why a date range is blocked
type AvailabilityReason string

const (
	AvailabilityReasonBooking AvailabilityReason = "booking"
	AvailabilityReasonVendor  AvailabilityReason = "vendor_block"
)

// VenueAvailability blocks an inclusive date range on a venue.
// BookingID is set when the block was caused by a booking.
type VenueAvailability struct {
	ID        string             `json:"id"`
	VenueID   string             `json:"venue_id"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	BookingID *string            `json:"booking_id,omitempty"`
	Reason    AvailabilityReason `json:"reason"`
	Note      string             `json:"note,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewBookingBlock blocks a single day for a booking
func NewBookingBlock(venueID, bookingID string, date time.Time) *VenueAvailability {
	d := DateOnly(date)
	return &VenueAvailability{
		ID:        uuid.New().String(),
		VenueID:   venueID,
		StartDate: d,
		EndDate:   d,
		BookingID: &bookingID,
		Reason:    AvailabilityReasonBooking,
		CreatedAt: time.Now().UTC(),
	}
}

// NewVendorBlock blocks a date range at the vendor's request
func NewVendorBlock(venueID string, start, end time.Time, note string) (*VenueAvailability, error) {
	start, end = DateOnly(start), DateOnly(end)
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}
	return &VenueAvailability{
		ID:        uuid.New().String(),
		VenueID:   venueID,
		StartDate: start,
		EndDate:   end,
		Reason:    AvailabilityReasonVendor,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Overlaps reports whether the block intersects [start, end], both inclusive
func (a *VenueAvailability) Overlaps(start, end time.Time) bool {
	return !a.StartDate.After(DateOnly(end)) && !a.EndDate.Before(DateOnly(start))
}

// IsLinkedTo reports whether the block was created by bookingID
func (a *VenueAvailability) IsLinkedTo(bookingID string) bool {
	return a.BookingID != nil && *a.BookingID == bookingID
}
