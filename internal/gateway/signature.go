package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

// Sign returns the hex HMAC-SHA256 of body under secret
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the HMAC of the raw body in constant time
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhookEvent decodes a provider payload of the form
// {"event": "...", "payload": {"payment": {"entity": {"id": "...", "order_id": "..."}}}}
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil || p.Event == "" {
		return nil, domain.ErrInvalidWebhookPayload
	}

	event := &WebhookEvent{
		Type:               p.Event,
		OrderRef:           p.Payload.Payment.Entity.OrderID,
		ProviderPaymentRef: p.Payload.Payment.Entity.ID,
	}
	if event.Type == EventPaymentCaptured && (event.OrderRef == "" || event.ProviderPaymentRef == "") {
		return nil, domain.ErrInvalidWebhookPayload
	}
	return event, nil
}

// HMACVerifier verifies webhooks signed with a shared secret
type HMACVerifier struct {
	secret string
}

// NewHMACVerifier creates a verifier for secret
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

// ParseEvent verifies the signature before decoding anything
func (v *HMACVerifier) ParseEvent(payload []byte, signature string) (*WebhookEvent, error) {
	if !VerifySignature(v.secret, payload, signature) {
		return nil, domain.ErrInvalidSignature
	}
	return ParseWebhookEvent(payload)
}
