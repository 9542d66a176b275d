package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the status of a payment. Success is terminal.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
)

// PaymentProvider tags how the order was created
type PaymentProvider string

const (
	PaymentProviderTest PaymentProvider = "TEST"
	PaymentProviderLive PaymentProvider = "LIVE_PROVIDER"
)

// PayableKind identifies the entity a payment is attached to
type PayableKind string

const (
	PayableKindBooking PayableKind = "booking"
	PayableKindWedding PayableKind = "wedding"
)

// PayableRef points at the booking or wedding a payment settles
type PayableRef struct {
	Kind PayableKind `json:"kind"`
	ID   string      `json:"id"`
}

// BookingRef references a booking
func BookingRef(id string) PayableRef {
	return PayableRef{Kind: PayableKindBooking, ID: id}
}

// WeddingRef references a wedding
func WeddingRef(id string) PayableRef {
	return PayableRef{Kind: PayableKindWedding, ID: id}
}

// Validate checks the kind and id are set
func (r PayableRef) Validate() error {
	if r.ID == "" {
		return ErrInvalidPayableRef
	}
	switch r.Kind {
	case PayableKindBooking, PayableKindWedding:
		return nil
	default:
		return ErrInvalidPayableRef
	}
}

func (r PayableRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Payment records money moving from a payer to a payee for a booking or wedding
type Payment struct {
	ID                 string          `json:"id"`
	Payable            PayableRef      `json:"payable"`
	PayerID            string          `json:"payer_id"`
	PayeeID            string          `json:"payee_id,omitempty"`
	Amount             float64         `json:"amount"`
	Currency           string          `json:"currency"`
	Provider           PaymentProvider `json:"provider"`
	ProviderRef        string          `json:"provider_ref"`
	ProviderPaymentRef string          `json:"provider_payment_ref,omitempty"`
	Status             PaymentStatus   `json:"status"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewPayment creates a pending payment for an order already registered with the provider
func NewPayment(payable PayableRef, payerID, payeeID string, amount float64, currency string, provider PaymentProvider, providerRef string) (*Payment, error) {
	if err := payable.Validate(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Payment{
		ID:          uuid.New().String(),
		Payable:     payable,
		PayerID:     payerID,
		PayeeID:     payeeID,
		Amount:      amount,
		Currency:    currency,
		Provider:    provider,
		ProviderRef: providerRef,
		Status:      PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsSuccess reports whether the payment has been confirmed
func (p *Payment) IsSuccess() bool {
	return p.Status == PaymentStatusSuccess
}

// IsTestMode reports whether the payment was created without a live provider
func (p *Payment) IsTestMode() bool {
	return p.Provider == PaymentProviderTest
}
