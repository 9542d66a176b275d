package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/database"
)

// PostgreSQL error codes
const (
	pgUniqueViolationCode    = "23505"
	pgExclusionViolationCode = "23P01"
	pgInvalidTextRepr        = "22P02"
	pgSerializationFailure   = "40001"
	pgDeadlockDetected       = "40P01"
)

// Constraint names from migrations/001_init.sql
const (
	constraintNoOverlap      = "venue_availability_no_overlap"
	constraintActiveWedding  = "bookings_active_wedding_uidx"
	constraintProviderRef    = "payments_provider_ref_key"
	constraintPayableSuccess = "payments_payable_success_uidx"
	constraintRefundBooking  = "refunds_booking_id_key"
	constraintInvoicePayment = "invoices_payment_id_key"
)

// querier is satisfied by pgx.Tx and *pgxpool.Pool
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUnitOfWork implements UnitOfWork on a pgx pool. Transactions run at
// read committed; workflows take row locks with GetForUpdate and rely on the
// schema's exclusion and unique constraints as the final word on conflicts.
type PostgresUnitOfWork struct {
	db *database.PostgresDB
}

// NewPostgresUnitOfWork creates a new PostgreSQL unit of work
func NewPostgresUnitOfWork(db *database.PostgresDB) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{db: db}
}

// Execute runs fn in a transaction
func (u *PostgresUnitOfWork) Execute(ctx context.Context, fn TxFunc) error {
	tx, err := u.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &postgresTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type postgresTx struct {
	q querier
}

func (t *postgresTx) Weddings() WeddingRepository {
	return &PostgresWeddingRepository{q: t.q}
}

func (t *postgresTx) Venues() VenueRepository {
	return &PostgresVenueRepository{q: t.q}
}

func (t *postgresTx) Availability() AvailabilityRepository {
	return &PostgresAvailabilityRepository{q: t.q}
}

func (t *postgresTx) Bookings() BookingRepository {
	return &PostgresBookingRepository{q: t.q}
}

func (t *postgresTx) Payments() PaymentRepository {
	return &PostgresPaymentRepository{q: t.q}
}

func (t *postgresTx) Refunds() RefundRepository {
	return &PostgresRefundRepository{q: t.q}
}

func (t *postgresTx) Invoices() InvoiceRepository {
	return &PostgresInvoiceRepository{q: t.q}
}

// mapPgError translates constraint and serialization failures into domain
// errors. It returns nil when err carries no known PostgreSQL condition.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}

	switch pgErr.Code {
	case pgExclusionViolationCode:
		if pgErr.ConstraintName == constraintNoOverlap {
			return domain.ErrDateAlreadyBlocked
		}
	case pgUniqueViolationCode:
		switch pgErr.ConstraintName {
		case constraintActiveWedding:
			return domain.ErrWeddingAlreadyBooked
		case constraintProviderRef:
			return domain.ErrPaymentAlreadyExists
		case constraintPayableSuccess:
			return domain.ErrAlreadyPaid
		case constraintRefundBooking:
			return domain.ErrRefundAlreadyExists
		}
	case pgSerializationFailure, pgDeadlockDetected:
		return domain.ErrConcurrentUpdate
	case pgInvalidTextRepr:
		return domain.ErrMalformedID
	}
	return nil
}

// wrapPgError maps known conditions or wraps err with op
func wrapPgError(op string, err error) error {
	if mapped := mapPgError(err); mapped != nil {
		return mapped
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// nullString returns nil if string is empty, otherwise returns pointer to string
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
