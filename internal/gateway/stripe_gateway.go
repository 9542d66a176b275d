package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeGateway implements PaymentGateway using Stripe.
// Orders are PaymentIntents; the intent ID is the order reference.
type StripeGateway struct {
	config *StripeGatewayConfig
}

// StripeGatewayConfig holds configuration for Stripe gateway
type StripeGatewayConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *StripeGatewayConfig) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	// Set Stripe API key globally
	stripe.Key = config.SecretKey

	return &StripeGateway{config: config}, nil
}

// CreateOrder creates a PaymentIntent
func (g *StripeGateway) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	if req == nil {
		return nil, fmt.Errorf("order request is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: make(map[string]string),
	}
	params.Metadata["receipt"] = req.Receipt
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &Order{
		OrderRef:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       req.Amount,
		Currency:     req.Currency,
	}, nil
}

// Refund refunds the PaymentIntent behind the order
func (g *StripeGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error) {
	if req == nil || req.OrderRef == "" {
		return nil, fmt.Errorf("order reference is required")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.OrderRef),
		Amount:        stripe.Int64(toMinorUnits(req.Amount)),
	}
	if req.RefundID != "" {
		params.SetIdempotencyKey("refund-" + req.RefundID)
	}

	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create refund: %w", err)
	}
	return &RefundResult{ProviderRefundRef: r.ID}, nil
}

// ParseEvent verifies a Stripe-Signature header and maps
// payment_intent.succeeded onto payment.captured.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.config.WebhookSecret)
	if err != nil {
		return nil, domain.ErrInvalidSignature
	}

	if event.Type != "payment_intent.succeeded" {
		return &WebhookEvent{Type: string(event.Type)}, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, domain.ErrInvalidWebhookPayload
	}

	paymentRef := pi.ID
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		paymentRef = pi.LatestCharge.ID
	}
	return &WebhookEvent{
		Type:               EventPaymentCaptured,
		OrderRef:           pi.ID,
		ProviderPaymentRef: paymentRef,
	}, nil
}

// Provider returns LIVE_PROVIDER
func (g *StripeGateway) Provider() domain.PaymentProvider {
	return domain.PaymentProviderLive
}

// PublicKey returns the publishable key
func (g *StripeGateway) PublicKey() string {
	return g.config.PublishableKey
}

// Name returns the gateway name
func (g *StripeGateway) Name() string {
	return "stripe"
}

// toMinorUnits converts to the smallest currency unit (paise for INR, cents for USD)
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
