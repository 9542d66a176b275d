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

// RefundStatusNone is reported when the tier yields no refund
const RefundStatusNone = "none"

// CancellationResult summarizes a cancellation
type CancellationResult struct {
	BookingID    string  `json:"booking_id"`
	RefundAmount float64 `json:"refund_amount"`
	RefundStatus string  `json:"refund_status"`
	RefundID     string  `json:"refund_id,omitempty"`
	DaysBefore   int     `json:"days_before"`
}

// CancellationService cancels confirmed bookings and issues refunds
type CancellationService struct {
	uow      repository.UnitOfWork
	notifier NotificationPort
	effects  *SideEffects
	clock    Clock
}

// NewCancellationService creates a new cancellation service
func NewCancellationService(uow repository.UnitOfWork, notifier NotificationPort, effects *SideEffects, clock Clock) *CancellationService {
	if effects == nil {
		effects = NewSideEffects()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &CancellationService{uow: uow, notifier: notifier, effects: effects, clock: clock}
}

// CancelBooking cancels a confirmed booking owned by clientID.
//
// The status change, the release of the booking's date and the refund row
// are written in one transaction. The refund is a share of the amount
// actually paid, chosen by how many days remain until the event.
func (s *CancellationService) CancelBooking(ctx context.Context, clientID, bookingID, reason string) (*CancellationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cancellation.cancel_booking")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", bookingID))
	log := logger.FromContext(ctx)

	var (
		result   *CancellationResult
		booking  *domain.Booking
		released int64
	)
	err := s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := tx.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		wedding, err := tx.Weddings().GetForUpdate(ctx, b.WeddingID)
		if err != nil {
			return err
		}
		if !wedding.IsOwnedBy(clientID) {
			return domain.ErrNotWeddingOwner
		}
		if !b.IsCancellable() {
			return domain.ErrBookingNotCancellable
		}

		payment, err := findSettledPayment(ctx, tx, b)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		daysBefore := domain.DaysBefore(b.EventDate, now)
		amount := domain.RefundAmount(payment.Amount, daysBefore)

		ok, err := tx.Bookings().Cancel(ctx, b.ID, reason, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrBookingNotCancellable
		}

		released, err = tx.Availability().DeleteByBooking(ctx, b.ID)
		if err != nil {
			return err
		}

		result = &CancellationResult{
			BookingID:    b.ID,
			RefundAmount: amount,
			RefundStatus: RefundStatusNone,
			DaysBefore:   daysBefore,
		}
		if amount > 0 {
			refund := domain.NewRefund(payment, b.ID, amount, reason)
			if err := tx.Refunds().Create(ctx, refund); err != nil {
				return err
			}
			result.RefundStatus = string(refund.Status)
			result.RefundID = refund.ID
		}

		booking = b
		booking.Status = domain.BookingStatusCancelled
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	metrics.Inc(ctx, metrics.BookingsCancelled)
	if result.RefundAmount > 0 {
		metrics.Inc(ctx, metrics.RefundsIssued)
		metrics.Observe(ctx, metrics.RefundAmount, result.RefundAmount)
	}
	log.Event("booking.cancelled",
		zap.String("booking_id", bookingID),
		zap.Int("days_before", result.DaysBefore),
		zap.Float64("refund_amount", result.RefundAmount),
		zap.Int64("dates_released", released),
	)

	if s.notifier != nil {
		payload := map[string]any{
			"booking_id":    booking.ID,
			"venue_id":      booking.VenueID,
			"event_date":    booking.EventDate.Format(domain.DateLayout),
			"refund_amount": result.RefundAmount,
			"refund_status": result.RefundStatus,
		}
		s.effects.Go(ctx, "notify.booking_cancelled", func(ctx context.Context) error {
			return s.notifier.Send(ctx, NotificationBookingCancelled, clientID, payload)
		})
	}

	return result, nil
}

// findSettledPayment prefers a payment against the booking and falls back to
// one against the wedding.
func findSettledPayment(ctx context.Context, tx repository.Tx, b *domain.Booking) (*domain.Payment, error) {
	payment, err := tx.Payments().GetLatestByPayable(ctx, domain.BookingRef(b.ID), domain.PaymentStatusSuccess)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		return nil, err
	}

	payment, err = tx.Payments().GetLatestByPayable(ctx, domain.WeddingRef(b.WeddingID), domain.PaymentStatusSuccess)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		return nil, domain.ErrPaymentRequired
	}
	return payment, err
}
