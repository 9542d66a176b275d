package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Invoice is generated once per successful payment
type Invoice struct {
	ID        string     `json:"id"`
	Number    string     `json:"number"`
	PaymentID string     `json:"payment_id"`
	Payable   PayableRef `json:"payable"`
	Amount    float64    `json:"amount"`
	Currency  string     `json:"currency"`
	IssuedAt  time.Time  `json:"issued_at"`
}

// NewInvoice creates an invoice for a confirmed payment
func NewInvoice(payment *Payment) *Invoice {
	now := time.Now().UTC()
	return &Invoice{
		ID:        uuid.New().String(),
		Number:    invoiceNumber(now),
		PaymentID: payment.ID,
		Payable:   payment.Payable,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		IssuedAt:  now,
	}
}

func invoiceNumber(t time.Time) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("INV-%s-%s", t.Format("20060102"), hex.EncodeToString(b))
}
