package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

// PostgresVenueRepository implements VenueRepository using PostgreSQL
type PostgresVenueRepository struct {
	q querier
}

// Create creates a new venue record
func (r *PostgresVenueRepository) Create(ctx context.Context, v *domain.Venue) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO venues (id, vendor_id, name, capacity, base_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.VendorID, v.Name, v.Capacity, v.BasePrice, v.CreatedAt,
	)
	if err != nil {
		return wrapPgError("create venue", err)
	}
	return nil
}

// GetByID retrieves a venue by its ID
func (r *PostgresVenueRepository) GetByID(ctx context.Context, id string) (*domain.Venue, error) {
	return r.get(ctx, `SELECT id, vendor_id, name, capacity, base_price, created_at FROM venues WHERE id = $1`, id)
}

// GetForUpdate retrieves a venue with a row lock
func (r *PostgresVenueRepository) GetForUpdate(ctx context.Context, id string) (*domain.Venue, error) {
	return r.get(ctx, `SELECT id, vendor_id, name, capacity, base_price, created_at FROM venues WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresVenueRepository) get(ctx context.Context, query, id string) (*domain.Venue, error) {
	var v domain.Venue
	err := r.q.QueryRow(ctx, query, id).Scan(&v.ID, &v.VendorID, &v.Name, &v.Capacity, &v.BasePrice, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVenueNotFound
		}
		return nil, wrapPgError("get venue", err)
	}
	return &v, nil
}

const availabilityColumns = `id, venue_id, start_date, end_date, booking_id, reason, note, created_at`

// PostgresAvailabilityRepository implements AvailabilityRepository using PostgreSQL.
// Overlap is enforced by the venue_availability_no_overlap exclusion constraint.
type PostgresAvailabilityRepository struct {
	q querier
}

// Create inserts a block
func (r *PostgresAvailabilityRepository) Create(ctx context.Context, b *domain.VenueAvailability) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO venue_availability (`+availabilityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.VenueID, b.StartDate, b.EndDate, b.BookingID, string(b.Reason), nullString(b.Note), b.CreatedAt,
	)
	if err != nil {
		return wrapPgError("create availability block", err)
	}
	return nil
}

// FindOverlapping returns blocks intersecting [start, end]
func (r *PostgresAvailabilityRepository) FindOverlapping(ctx context.Context, venueID string, start, end time.Time) ([]*domain.VenueAvailability, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM venue_availability
		WHERE venue_id = $1 AND start_date <= $3 AND end_date >= $2
		ORDER BY start_date`,
		venueID, domain.DateOnly(start), domain.DateOnly(end),
	)
	if err != nil {
		return nil, wrapPgError("query availability", err)
	}
	defer rows.Close()

	var blocks []*domain.VenueAvailability
	for rows.Next() {
		var (
			b      domain.VenueAvailability
			reason string
			note   *string
		)
		if err := rows.Scan(&b.ID, &b.VenueID, &b.StartDate, &b.EndDate, &b.BookingID, &reason, &note, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		b.Reason = domain.AvailabilityReason(reason)
		b.Note = derefString(note)
		blocks = append(blocks, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate availability: %w", err)
	}
	return blocks, nil
}

// ListByVenue returns blocks intersecting [from, to]
func (r *PostgresAvailabilityRepository) ListByVenue(ctx context.Context, venueID string, from, to time.Time) ([]*domain.VenueAvailability, error) {
	return r.FindOverlapping(ctx, venueID, from, to)
}

// DeleteByBooking removes blocks created by bookingID
func (r *PostgresAvailabilityRepository) DeleteByBooking(ctx context.Context, bookingID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM venue_availability WHERE booking_id = $1`, bookingID)
	if err != nil {
		return 0, fmt.Errorf("failed to release availability: %w", err)
	}
	return tag.RowsAffected(), nil
}
