package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/response"
)

const (
	DefaultSignatureHeader = "X-Webhook-Signature"
	StripeSignatureHeader  = "Stripe-Signature"

	maxWebhookBody = 1 << 20
)

// WebhookHandler receives payment provider callbacks. The signature is
// checked against the raw body exactly as received.
type WebhookHandler struct {
	payments        *service.PaymentService
	signatureHeader string
	stripe          gateway.WebhookVerifier
}

// WebhookHandlerConfig contains configuration for the webhook handler
type WebhookHandlerConfig struct {
	SignatureHeader string
	// Stripe verifies Stripe-signed deliveries; nil disables that route
	Stripe gateway.WebhookVerifier
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(payments *service.PaymentService, cfg *WebhookHandlerConfig) *WebhookHandler {
	h := &WebhookHandler{payments: payments, signatureHeader: DefaultSignatureHeader}
	if cfg != nil {
		if cfg.SignatureHeader != "" {
			h.signatureHeader = cfg.SignatureHeader
		}
		h.stripe = cfg.Stripe
	}
	return h
}

// HandlePaymentWebhook handles POST /webhooks/payments
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	payload, ok := readBody(c)
	if !ok {
		return
	}

	result, err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader(h.signatureHeader))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// HandleStripeWebhook handles POST /webhooks/stripe
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	if h.stripe == nil {
		response.NotFound(c, "stripe webhooks are not enabled")
		return
	}
	payload, ok := readBody(c)
	if !ok {
		return
	}

	result, err := h.payments.ProcessWebhook(c.Request.Context(), h.stripe, payload, c.GetHeader(StripeSignatureHeader))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

func readBody(c *gin.Context) ([]byte, bool) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "webhook body is too large")
			return nil, false
		}
		response.BadRequest(c, "failed to read request body")
		return nil, false
	}
	return payload, true
}
