package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

const bookingColumns = `id, wedding_id, venue_id, event_date, status, cancellation_reason, confirmed_at, cancelled_at, created_at, updated_at`

// PostgresBookingRepository implements BookingRepository using PostgreSQL.
// The bookings_active_wedding_uidx partial index enforces one active booking per wedding.
type PostgresBookingRepository struct {
	q querier
}

// Create creates a new booking record
func (r *PostgresBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.WeddingID, b.VenueID, b.EventDate, string(b.Status), nullString(b.CancellationReason),
		b.ConfirmedAt, b.CancelledAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return wrapPgError("create booking", err)
	}
	return nil
}

// GetByID retrieves a booking by its ID
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return r.scanBooking(r.q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

// GetActiveByWedding retrieves the non-cancelled booking of a wedding
func (r *PostgresBookingRepository) GetActiveByWedding(ctx context.Context, weddingID string) (*domain.Booking, error) {
	return r.scanBooking(r.q.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE wedding_id = $1 AND status <> 'cancelled'`, weddingID))
}

// Confirm moves a pending booking to confirmed
func (r *PostgresBookingRepository) Confirm(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE bookings
		SET status = 'confirmed', confirmed_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending'`,
		id, at,
	)
	if err != nil {
		return false, wrapPgError("confirm booking", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel moves a confirmed booking to cancelled
func (r *PostgresBookingRepository) Cancel(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancellation_reason = $2, cancelled_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'confirmed'`,
		id, nullString(reason), at,
	)
	if err != nil {
		return false, wrapPgError("cancel booking", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresBookingRepository) scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b      domain.Booking
		status string
		reason *string
	)
	err := row.Scan(
		&b.ID, &b.WeddingID, &b.VenueID, &b.EventDate, &status, &reason,
		&b.ConfirmedAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, wrapPgError("scan booking", err)
	}
	b.Status = domain.BookingStatus(status)
	b.CancellationReason = derefString(reason)
	return &b, nil
}
