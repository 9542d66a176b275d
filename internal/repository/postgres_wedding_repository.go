package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

const weddingColumns = `id, client_id, event_date, location, guest_count, budget, status, created_at, updated_at`

// PostgresWeddingRepository implements WeddingRepository using PostgreSQL
type PostgresWeddingRepository struct {
	q querier
}

// Create creates a new wedding record
func (r *PostgresWeddingRepository) Create(ctx context.Context, w *domain.Wedding) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO weddings (`+weddingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.ClientID, w.EventDate, nullString(w.Location), w.GuestCount, w.Budget,
		string(w.Status), w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return wrapPgError("create wedding", err)
	}
	return nil
}

// GetByID retrieves a wedding by its ID
func (r *PostgresWeddingRepository) GetByID(ctx context.Context, id string) (*domain.Wedding, error) {
	return r.get(ctx, `SELECT `+weddingColumns+` FROM weddings WHERE id = $1`, id)
}

// GetForUpdate retrieves a wedding with a row lock
func (r *PostgresWeddingRepository) GetForUpdate(ctx context.Context, id string) (*domain.Wedding, error) {
	return r.get(ctx, `SELECT `+weddingColumns+` FROM weddings WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresWeddingRepository) get(ctx context.Context, query, id string) (*domain.Wedding, error) {
	var (
		w        domain.Wedding
		location *string
		status   string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.ClientID, &w.EventDate, &location, &w.GuestCount, &w.Budget,
		&status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWeddingNotFound
		}
		return nil, wrapPgError("get wedding", err)
	}
	w.Location = derefString(location)
	w.Status = domain.WeddingStatus(status)
	w.EventDate = domain.DateOnly(w.EventDate)
	return &w, nil
}
