package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

const defaultTestKey = "test_key"

// TestGateway simulates a provider locally. Orders and refunds are
// synthesized without any network call.
type TestGateway struct {
	publicKey string
}

// NewTestGateway creates a new test gateway
func NewTestGateway(publicKey string) *TestGateway {
	if publicKey == "" {
		publicKey = defaultTestKey
	}
	return &TestGateway{publicKey: publicKey}
}

// CreateOrder synthesizes a test_order_<hex> reference
func (g *TestGateway) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	if req == nil {
		return nil, fmt.Errorf("order request is required")
	}
	return &Order{
		OrderRef: "test_order_" + randomHex(12),
		Amount:   req.Amount,
		Currency: req.Currency,
	}, nil
}

// Refund synthesizes a test_rfnd_<hex> reference
func (g *TestGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error) {
	if req == nil {
		return nil, fmt.Errorf("refund request is required")
	}
	return &RefundResult{ProviderRefundRef: "test_rfnd_" + randomHex(12)}, nil
}

// Provider returns TEST
func (g *TestGateway) Provider() domain.PaymentProvider {
	return domain.PaymentProviderTest
}

// PublicKey returns the configured publishable key
func (g *TestGateway) PublicKey() string {
	return g.publicKey
}

// Name returns the gateway name
func (g *TestGateway) Name() string {
	return "test"
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
