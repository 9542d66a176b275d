package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

// paymentColumns defines the columns to select for payment queries
const paymentColumns = `
	id, payable_kind, payable_id, payer_id, payee_id, amount, currency,
	provider, provider_ref, provider_payment_ref, status, paid_at, created_at, updated_at
`

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL
type PostgresPaymentRepository struct {
	q querier
}

// Create creates a new payment record
func (r *PostgresPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID,
		string(p.Payable.Kind),
		p.Payable.ID,
		p.PayerID,
		nullString(p.PayeeID),
		p.Amount,
		p.Currency,
		string(p.Provider),
		p.ProviderRef,
		nullString(p.ProviderPaymentRef),
		string(p.Status),
		p.PaidAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return wrapPgError("create payment", err)
	}
	return nil
}

// GetByID retrieves a payment by its ID
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.scanPayment(r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

// GetByProviderRef retrieves a payment by provider order reference
func (r *PostgresPaymentRepository) GetByProviderRef(ctx context.Context, providerRef string) (*domain.Payment, error) {
	return r.scanPayment(r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE provider_ref = $1`, providerRef))
}

// GetLatestByPayable retrieves the newest payment for ref in status
func (r *PostgresPaymentRepository) GetLatestByPayable(ctx context.Context, ref domain.PayableRef, status domain.PaymentStatus) (*domain.Payment, error) {
	return r.scanPayment(r.q.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE payable_kind = $1 AND payable_id = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1`,
		string(ref.Kind), ref.ID, string(status),
	))
}

// MarkSucceeded is a check-and-set from pending to success
func (r *PostgresPaymentRepository) MarkSucceeded(ctx context.Context, id, providerPaymentRef string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE payments
		SET status = 'success', provider_payment_ref = $2, paid_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending'`,
		id, nullString(providerPaymentRef), at,
	)
	if err != nil {
		return false, wrapPgError("mark payment succeeded", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresPaymentRepository) scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p                  domain.Payment
		kind               string
		payeeID            *string
		provider           string
		providerPaymentRef *string
		status             string
	)
	err := row.Scan(
		&p.ID,
		&kind,
		&p.Payable.ID,
		&p.PayerID,
		&payeeID,
		&p.Amount,
		&p.Currency,
		&provider,
		&p.ProviderRef,
		&providerPaymentRef,
		&status,
		&p.PaidAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, wrapPgError("scan payment", err)
	}

	p.Payable.Kind = domain.PayableKind(kind)
	p.PayeeID = derefString(payeeID)
	p.Provider = domain.PaymentProvider(provider)
	p.ProviderPaymentRef = derefString(providerPaymentRef)
	p.Status = domain.PaymentStatus(status)
	return &p, nil
}
