package dto

import (
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

// CreateBookingRequest represents request to book a venue for a wedding
type CreateBookingRequest struct {
	WeddingID string `json:"wedding_id" binding:"required,uuid"`
	VenueID   string `json:"venue_id" binding:"required,uuid"`
}

// CancelBookingRequest represents request to cancel a confirmed booking
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty" binding:"max=500"`
}

// BookingResponse represents a booking in API response
type BookingResponse struct {
	ID                 string     `json:"id"`
	WeddingID          string     `json:"wedding_id"`
	VenueID            string     `json:"venue_id"`
	EventDate          string     `json:"event_date"`
	Status             string     `json:"status"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
}

// BookingFromDomain converts a domain booking to its API shape
func BookingFromDomain(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:                 b.ID,
		WeddingID:          b.WeddingID,
		VenueID:            b.VenueID,
		EventDate:          b.EventDate.Format(domain.DateLayout),
		Status:             string(b.Status),
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		ConfirmedAt:        b.ConfirmedAt,
		CancelledAt:        b.CancelledAt,
	}
}

// InitiatePaymentRequest starts a payment. Exactly one of WeddingID and
// BookingID must be set.
type InitiatePaymentRequest struct {
	WeddingID string  `json:"wedding_id,omitempty" binding:"omitempty,uuid"`
	BookingID string  `json:"booking_id,omitempty" binding:"omitempty,uuid"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	PayeeID   string  `json:"payee_id,omitempty"`
}

// Payable resolves the target of the payment
func (r *InitiatePaymentRequest) Payable() (domain.PayableRef, error) {
	switch {
	case r.BookingID != "" && r.WeddingID != "":
		return domain.PayableRef{}, domain.ErrInvalidPayableRef
	case r.BookingID != "":
		return domain.BookingRef(r.BookingID), nil
	case r.WeddingID != "":
		return domain.WeddingRef(r.WeddingID), nil
	}
	return domain.PayableRef{}, domain.ErrInvalidPayableRef
}

// ConfirmPaymentRequest carries the provider's payment reference
type ConfirmPaymentRequest struct {
	ProviderPaymentRef string `json:"provider_payment_ref,omitempty"`
}

// PaymentResponse represents a payment in API response
type PaymentResponse struct {
	ID                 string     `json:"id"`
	PayableKind        string     `json:"payable_kind"`
	PayableID          string     `json:"payable_id"`
	PayerID            string     `json:"payer_id"`
	PayeeID            string     `json:"payee_id,omitempty"`
	Amount             float64    `json:"amount"`
	Currency           string     `json:"currency"`
	Provider           string     `json:"provider"`
	ProviderRef        string     `json:"provider_ref"`
	ProviderPaymentRef string     `json:"provider_payment_ref,omitempty"`
	Status             string     `json:"status"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// PaymentFromDomain converts a domain payment to its API shape
func PaymentFromDomain(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                 p.ID,
		PayableKind:        string(p.Payable.Kind),
		PayableID:          p.Payable.ID,
		PayerID:            p.PayerID,
		PayeeID:            p.PayeeID,
		Amount:             p.Amount,
		Currency:           p.Currency,
		Provider:           string(p.Provider),
		ProviderRef:        p.ProviderRef,
		ProviderPaymentRef: p.ProviderPaymentRef,
		Status:             string(p.Status),
		PaidAt:             p.PaidAt,
		CreatedAt:          p.CreatedAt,
	}
}

// ConfirmPaymentResponse is returned by the direct confirmation endpoint
type ConfirmPaymentResponse struct {
	Payment          *PaymentResponse `json:"payment"`
	AlreadyProcessed bool             `json:"already_processed"`
}

// BlockDatesRequest blocks an inclusive date range on a venue
type BlockDatesRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Note      string `json:"note,omitempty" binding:"max=500"`
}

// Range parses the requested dates
func (r *BlockDatesRequest) Range() (time.Time, time.Time, error) {
	return parseRange(r.StartDate, r.EndDate)
}

// AvailabilityResponse represents one blocked range
type AvailabilityResponse struct {
	ID        string `json:"id"`
	VenueID   string `json:"venue_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
	BookingID string `json:"booking_id,omitempty"`
	Note      string `json:"note,omitempty"`
}

// AvailabilityFromDomain converts a domain availability row to its API shape
func AvailabilityFromDomain(a *domain.VenueAvailability) *AvailabilityResponse {
	resp := &AvailabilityResponse{
		ID:        a.ID,
		VenueID:   a.VenueID,
		StartDate: a.StartDate.Format(domain.DateLayout),
		EndDate:   a.EndDate.Format(domain.DateLayout),
		Reason:    string(a.Reason),
		Note:      a.Note,
	}
	if a.BookingID != nil {
		resp.BookingID = *a.BookingID
	}
	return resp
}

// ParseRangeQuery parses from/to query values; both are required
func ParseRangeQuery(from, to string) (time.Time, time.Time, error) {
	return parseRange(from, to)
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := domain.ParseDate(from)
	if err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidDateRange
	}
	end, err := domain.ParseDate(to)
	if err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidDateRange
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, domain.ErrInvalidDateRange
	}
	return start, end, nil
}
