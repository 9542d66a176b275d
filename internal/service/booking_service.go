package service

import (
	"context"
	"errors"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/metrics"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BookingService reserves venues for weddings
type BookingService struct {
	uow      repository.UnitOfWork
	notifier NotificationPort
	effects  *SideEffects
}

// NewBookingService creates a new booking service
func NewBookingService(uow repository.UnitOfWork, notifier NotificationPort, effects *SideEffects) *BookingService {
	if effects == nil {
		effects = NewSideEffects()
	}
	return &BookingService{uow: uow, notifier: notifier, effects: effects}
}

// BookVenue books venueID for the event date of weddingID in one transaction.
//
// The wedding and venue rows are locked before the availability check, so
// concurrent requests for the same venue queue up behind each other. The
// store's overlap and active-booking constraints still have the final say;
// a violation at insert time is reported as the same conflict the pre-check
// would have returned.
func (s *BookingService) BookVenue(ctx context.Context, clientID, weddingID, venueID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.book_venue")
	defer span.End()
	span.SetAttributes(
		attribute.String("wedding_id", weddingID),
		attribute.String("venue_id", venueID),
	)
	log := logger.FromContext(ctx)

	var (
		booking *domain.Booking
		venue   *domain.Venue
	)
	err := s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		wedding, err := tx.Weddings().GetForUpdate(ctx, weddingID)
		if err != nil {
			return err
		}
		if !wedding.IsOwnedBy(clientID) {
			return domain.ErrNotWeddingOwner
		}

		venue, err = tx.Venues().GetForUpdate(ctx, venueID)
		if err != nil {
			return err
		}

		if _, err := tx.Bookings().GetActiveByWedding(ctx, weddingID); err == nil {
			return domain.ErrWeddingAlreadyBooked
		} else if !errors.Is(err, domain.ErrBookingNotFound) {
			return err
		}

		blocks, err := tx.Availability().FindOverlapping(ctx, venueID, wedding.EventDate, wedding.EventDate)
		if err != nil {
			return err
		}
		if len(blocks) > 0 {
			return domain.ErrVenueUnavailable
		}

		b := domain.NewBooking(wedding.ID, venue.ID, wedding.EventDate)
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		if err := tx.Availability().Create(ctx, domain.NewBookingBlock(venue.ID, b.ID, b.EventDate)); err != nil {
			if errors.Is(err, domain.ErrDateAlreadyBlocked) {
				log.Warn("availability constraint rejected booking", zap.String("venue_id", venueID))
				return domain.ErrVenueUnavailable
			}
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if domain.IsConflictError(err) {
			metrics.Inc(ctx, metrics.BookingsConflicts, attribute.String("reason", conflictReason(err)))
			log.Event("booking.conflict", zap.String("wedding_id", weddingID), zap.String("venue_id", venueID), zap.Error(err))
		}
		return nil, err
	}

	metrics.Inc(ctx, metrics.BookingsCreated)
	log.Event("booking.created",
		zap.String("booking_id", booking.ID),
		zap.String("wedding_id", weddingID),
		zap.String("venue_id", venueID),
		zap.String("event_date", booking.EventDate.Format(domain.DateLayout)),
	)

	if s.notifier != nil {
		vendorID := venue.VendorID
		payload := map[string]any{
			"booking_id": booking.ID,
			"wedding_id": booking.WeddingID,
			"venue_id":   booking.VenueID,
			"event_date": booking.EventDate.Format(domain.DateLayout),
		}
		s.effects.Go(ctx, "notify.booking_requested", func(ctx context.Context) error {
			return s.notifier.Send(ctx, NotificationBookingRequested, vendorID, payload)
		})
	}

	return booking, nil
}

// GetBooking returns a booking visible to the wedding owner, the venue's
// vendor, or an internal actor.
func (s *BookingService) GetBooking(ctx context.Context, actor Actor, bookingID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get")
	defer span.End()

	var booking *domain.Booking
	err := s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := tx.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if actor.Internal {
			booking = b
			return nil
		}

		wedding, err := tx.Weddings().GetByID(ctx, b.WeddingID)
		if err != nil {
			return err
		}
		if wedding.IsOwnedBy(actor.UserID) {
			booking = b
			return nil
		}

		venue, err := tx.Venues().GetByID(ctx, b.VenueID)
		if err != nil {
			return err
		}
		if venue.VendorID != actor.UserID {
			return domain.ErrNotWeddingOwner
		}
		booking = b
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return booking, nil
}

func conflictReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrVenueUnavailable):
		return "venue_unavailable"
	case errors.Is(err, domain.ErrWeddingAlreadyBooked):
		return "wedding_already_booked"
	default:
		return "concurrent_update"
	}
}
