package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// RefundStatus represents the status of a refund
type RefundStatus string

const (
	RefundStatusInitiated RefundStatus = "initiated"
	RefundStatusProcessed RefundStatus = "processed"
	RefundStatusFailed    RefundStatus = "failed"
)

// Refund tier boundaries in days before the event, inclusive
const (
	FullRefundDays    = 30
	PartialRefundDays = 7
)

// Refund is issued once per cancelled booking
type Refund struct {
	ID                string       `json:"id"`
	PaymentID         string       `json:"payment_id"`
	BookingID         string       `json:"booking_id"`
	Amount            float64      `json:"amount"`
	Currency          string       `json:"currency"`
	Status            RefundStatus `json:"status"`
	Reason            string       `json:"reason,omitempty"`
	ProviderRefundRef string       `json:"provider_refund_ref,omitempty"`
	FailureReason     string       `json:"failure_reason,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// NewRefund creates an initiated refund
func NewRefund(payment *Payment, bookingID string, amount float64, reason string) *Refund {
	now := time.Now().UTC()
	return &Refund{
		ID:        uuid.New().String(),
		PaymentID: payment.ID,
		BookingID: bookingID,
		Amount:    amount,
		Currency:  payment.Currency,
		Status:    RefundStatusInitiated,
		Reason:    reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RefundFraction returns the share of the payment refunded for a cancellation
// daysBefore days ahead of the event.
func RefundFraction(daysBefore int) float64 {
	switch {
	case daysBefore >= FullRefundDays:
		return 1.0
	case daysBefore >= PartialRefundDays:
		return 0.5
	default:
		return 0
	}
}

// RefundAmount applies the tier to amount, floored to a whole currency unit
func RefundAmount(amount float64, daysBefore int) float64 {
	return math.Floor(amount * RefundFraction(daysBefore))
}
