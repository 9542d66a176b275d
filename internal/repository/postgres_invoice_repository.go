package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

// PostgresInvoiceRepository implements InvoiceRepository using PostgreSQL
type PostgresInvoiceRepository struct {
	q querier
}

// Create inserts an invoice unless the payment already has one, in which
// case the existing invoice is returned.
func (r *PostgresInvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO invoices (id, number, payment_id, payable_kind, payable_id, amount, currency, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ON CONSTRAINT `+constraintInvoicePayment+` DO NOTHING`,
		inv.ID, inv.Number, inv.PaymentID, string(inv.Payable.Kind), inv.Payable.ID,
		inv.Amount, inv.Currency, inv.IssuedAt,
	)
	if err != nil {
		return nil, wrapPgError("create invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return r.GetByPaymentID(ctx, inv.PaymentID)
	}
	out := *inv
	return &out, nil
}

// GetByPaymentID retrieves the invoice of a payment
func (r *PostgresInvoiceRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Invoice, error) {
	var (
		inv  domain.Invoice
		kind string
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, number, payment_id, payable_kind, payable_id, amount, currency, issued_at
		FROM invoices WHERE payment_id = $1`, paymentID,
	).Scan(&inv.ID, &inv.Number, &inv.PaymentID, &kind, &inv.Payable.ID, &inv.Amount, &inv.Currency, &inv.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, wrapPgError("get invoice", err)
	}
	inv.Payable.Kind = domain.PayableKind(kind)
	return &inv, nil
}
