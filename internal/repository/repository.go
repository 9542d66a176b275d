package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

// WeddingRepository defines data access for weddings
type WeddingRepository interface {
	// Create creates a new wedding record
	Create(ctx context.Context, wedding *domain.Wedding) error

	// GetByID retrieves a wedding by its ID
	GetByID(ctx context.Context, id string) (*domain.Wedding, error)

	// GetForUpdate retrieves a wedding and locks its row until the transaction ends
	GetForUpdate(ctx context.Context, id string) (*domain.Wedding, error)
}

// VenueRepository defines data access for venues
type VenueRepository interface {
	Create(ctx context.Context, venue *domain.Venue) error
	GetByID(ctx context.Context, id string) (*domain.Venue, error)

	// GetForUpdate locks the venue row, serializing bookings for the same venue
	GetForUpdate(ctx context.Context, id string) (*domain.Venue, error)
}

// AvailabilityRepository stores blocked date ranges per venue.
// Create must reject a range overlapping an existing block for the same venue
// with domain.ErrDateAlreadyBlocked.
type AvailabilityRepository interface {
	Create(ctx context.Context, block *domain.VenueAvailability) error

	// FindOverlapping returns blocks on venueID intersecting [start, end]
	FindOverlapping(ctx context.Context, venueID string, start, end time.Time) ([]*domain.VenueAvailability, error)

	// ListByVenue returns blocks on venueID intersecting [from, to], ordered by start date
	ListByVenue(ctx context.Context, venueID string, from, to time.Time) ([]*domain.VenueAvailability, error)

	// DeleteByBooking removes the blocks created by bookingID and returns how many were removed
	DeleteByBooking(ctx context.Context, bookingID string) (int64, error)
}

// BookingRepository defines data access for bookings.
// Create must reject a second non-cancelled booking for the same wedding
// with domain.ErrWeddingAlreadyBooked.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetActiveByWedding returns the non-cancelled booking of a wedding
	GetActiveByWedding(ctx context.Context, weddingID string) (*domain.Booking, error)

	// Confirm moves a pending booking to confirmed. It reports false when the
	// booking was not pending.
	Confirm(ctx context.Context, id string, at time.Time) (bool, error)

	// Cancel moves a confirmed booking to cancelled. It reports false when the
	// booking was not confirmed.
	Cancel(ctx context.Context, id, reason string, at time.Time) (bool, error)
}

// PaymentRepository defines data access for payments
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByProviderRef retrieves a payment by the provider order reference
	GetByProviderRef(ctx context.Context, providerRef string) (*domain.Payment, error)

	// GetLatestByPayable returns the most recent payment in status for ref
	GetLatestByPayable(ctx context.Context, ref domain.PayableRef, status domain.PaymentStatus) (*domain.Payment, error)

	// MarkSucceeded sets a pending payment to success. It reports false when the
	// payment was no longer pending, which makes it safe under concurrent confirms.
	MarkSucceeded(ctx context.Context, id, providerPaymentRef string, at time.Time) (bool, error)
}

// RefundRepository defines data access for refunds.
// Create must reject a second refund for the same booking with
// domain.ErrRefundAlreadyExists.
type RefundRepository interface {
	Create(ctx context.Context, refund *domain.Refund) error
	ListByBooking(ctx context.Context, bookingID string) ([]*domain.Refund, error)

	// ListByStatus returns up to limit refunds in status, oldest first
	ListByStatus(ctx context.Context, status domain.RefundStatus, limit int) ([]*domain.Refund, error)

	// UpdateStatus moves a refund from one status to another. It reports false
	// when the refund was not in from.
	UpdateStatus(ctx context.Context, id string, from, to domain.RefundStatus, providerRefundRef, failureReason string) (bool, error)
}

// InvoiceRepository defines data access for invoices
type InvoiceRepository interface {
	// Create stores an invoice, returning the existing one if the payment was already invoiced
	Create(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Invoice, error)
}

// Tx exposes repositories bound to one transaction
type Tx interface {
	Weddings() WeddingRepository
	Venues() VenueRepository
	Availability() AvailabilityRepository
	Bookings() BookingRepository
	Payments() PaymentRepository
	Refunds() RefundRepository
	Invoices() InvoiceRepository
}

// TxFunc is the body of a unit of work
type TxFunc func(ctx context.Context, tx Tx) error

// UnitOfWork runs fn in a transaction. It commits when fn returns nil and
// rolls back otherwise, so either every write in fn is kept or none is.
type UnitOfWork interface {
	Execute(ctx context.Context, fn TxFunc) error
}
