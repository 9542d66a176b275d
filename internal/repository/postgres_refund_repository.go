package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

const refundColumns = `id, payment_id, booking_id, amount, currency, status, reason, provider_refund_ref, failure_reason, created_at, updated_at`

// PostgresRefundRepository implements RefundRepository using PostgreSQL
type PostgresRefundRepository struct {
	q querier
}

// Create creates a new refund record
func (r *PostgresRefundRepository) Create(ctx context.Context, rf *domain.Refund) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO refunds (`+refundColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rf.ID, rf.PaymentID, rf.BookingID, rf.Amount, rf.Currency, string(rf.Status),
		nullString(rf.Reason), nullString(rf.ProviderRefundRef), nullString(rf.FailureReason),
		rf.CreatedAt, rf.UpdatedAt,
	)
	if err != nil {
		return wrapPgError("create refund", err)
	}
	return nil
}

// ListByBooking returns refunds for a booking
func (r *PostgresRefundRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Refund, error) {
	return r.list(ctx, `SELECT `+refundColumns+` FROM refunds WHERE booking_id = $1 ORDER BY created_at`, bookingID)
}

// ListByStatus returns up to limit refunds in status, oldest first
func (r *PostgresRefundRepository) ListByStatus(ctx context.Context, status domain.RefundStatus, limit int) ([]*domain.Refund, error) {
	return r.list(ctx, `SELECT `+refundColumns+` FROM refunds WHERE status = $1 ORDER BY created_at LIMIT $2`, string(status), limit)
}

// UpdateStatus is a check-and-set on refund status
func (r *PostgresRefundRepository) UpdateStatus(ctx context.Context, id string, from, to domain.RefundStatus, providerRefundRef, failureReason string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE refunds
		SET status = $3,
		    provider_refund_ref = COALESCE($4, provider_refund_ref),
		    failure_reason = $5,
		    updated_at = $6
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), nullString(providerRefundRef), nullString(failureReason), time.Now().UTC(),
	)
	if err != nil {
		return false, wrapPgError("update refund status", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRefundRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Refund, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query refunds: %w", err)
	}
	defer rows.Close()

	var refunds []*domain.Refund
	for rows.Next() {
		var (
			rf                               domain.Refund
			status                           string
			reason, providerRef, failureNote *string
		)
		if err := rows.Scan(
			&rf.ID, &rf.PaymentID, &rf.BookingID, &rf.Amount, &rf.Currency, &status,
			&reason, &providerRef, &failureNote, &rf.CreatedAt, &rf.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		rf.Status = domain.RefundStatus(status)
		rf.Reason = derefString(reason)
		rf.ProviderRefundRef = derefString(providerRef)
		rf.FailureReason = derefString(failureNote)
		refunds = append(refunds, &rf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate refunds: %w", err)
	}
	return refunds, nil
}
