package gateway

import (
	"context"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

// EventPaymentCaptured is the webhook event that confirms a payment
const EventPaymentCaptured = "payment.captured"

// OrderRequest represents a request to register an order with the provider
type OrderRequest struct {
	Amount   float64
	Currency string
	Receipt  string
	Metadata map[string]string
}

// Order is the provider-side order a client pays against
type Order struct {
	OrderRef     string
	ClientSecret string
	Amount       float64
	Currency     string
}

// RefundRequest represents a refund against a captured payment
type RefundRequest struct {
	OrderRef           string
	ProviderPaymentRef string
	Amount             float64
	Currency           string
	RefundID           string
}

// RefundResult carries the provider's refund reference
type RefundResult struct {
	ProviderRefundRef string
}

// PaymentGateway creates orders and refunds with a payment provider
type PaymentGateway interface {
	// CreateOrder registers an order and returns its reference
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)

	// Refund returns money for a captured payment
	Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error)

	// Provider returns the tag stored on payments created through this gateway
	Provider() domain.PaymentProvider

	// PublicKey returns the key the client uses to open checkout
	PublicKey() string

	// Name returns the gateway name
	Name() string
}

// WebhookEvent is a verified provider callback
type WebhookEvent struct {
	Type               string
	OrderRef           string
	ProviderPaymentRef string
}

// WebhookVerifier authenticates and decodes a raw webhook delivery.
// It returns domain.ErrInvalidSignature when the signature does not match and
// domain.ErrInvalidWebhookPayload for an authentic delivery it cannot decode.
type WebhookVerifier interface {
	ParseEvent(payload []byte, signature string) (*WebhookEvent, error)
}

// IsLive reports whether g talks to a real provider
func IsLive(g PaymentGateway) bool {
	return g.Provider() == domain.PaymentProviderLive
}
