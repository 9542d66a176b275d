package service

import (
	"context"
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/telemetry"
	"go.uber.org/zap"
)

// AvailabilityService manages vendor-initiated date blocks
type AvailabilityService struct {
	uow repository.UnitOfWork
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(uow repository.UnitOfWork) *AvailabilityService {
	return &AvailabilityService{uow: uow}
}

// BlockDates blocks [start, end] on a venue. Only the venue's vendor or an
// internal actor may do so. Blocks created here are never released by
// booking cancellations.
func (s *AvailabilityService) BlockDates(ctx context.Context, actor Actor, venueID string, start, end time.Time, note string) (*domain.VenueAvailability, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.block_dates")
	defer span.End()

	block, err := domain.NewVendorBlock(venueID, start, end, note)
	if err != nil {
		return nil, err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		venue, err := tx.Venues().GetForUpdate(ctx, venueID)
		if err != nil {
			return err
		}
		if !actor.Internal && venue.VendorID != actor.UserID {
			return domain.ErrNotVenueOwner
		}

		existing, err := tx.Availability().FindOverlapping(ctx, venueID, block.StartDate, block.EndDate)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.ErrDateAlreadyBlocked
		}
		return tx.Availability().Create(ctx, block)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.FromContext(ctx).Event("availability.blocked",
		zap.String("venue_id", venueID),
		zap.String("start_date", block.StartDate.Format(domain.DateLayout)),
		zap.String("end_date", block.EndDate.Format(domain.DateLayout)),
	)
	return block, nil
}

// ListBlocks returns blocks on a venue intersecting [from, to]
func (s *AvailabilityService) ListBlocks(ctx context.Context, venueID string, from, to time.Time) ([]*domain.VenueAvailability, error) {
	if domain.DateOnly(from).After(domain.DateOnly(to)) {
		return nil, domain.ErrInvalidDateRange
	}

	var blocks []*domain.VenueAvailability
	err := s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Venues().GetByID(ctx, venueID); err != nil {
			return err
		}
		var err error
		blocks, err = tx.Availability().ListByVenue(ctx, venueID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// IsAvailable reports whether date is free on a venue
func (s *AvailabilityService) IsAvailable(ctx context.Context, venueID string, date time.Time) (bool, error) {
	blocks, err := s.ListBlocks(ctx, venueID, date, date)
	if err != nil {
		return false, err
	}
	return len(blocks) == 0, nil
}
