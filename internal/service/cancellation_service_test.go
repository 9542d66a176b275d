package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancellationService_RefundTiers(t *testing.T) {
	tests := []struct {
		daysAhead  int
		wantAmount float64
		wantStatus string
	}{
		{31, 100000, string(domain.RefundStatusInitiated)},
		{30, 100000, string(domain.RefundStatusInitiated)},
		{29, 50000, string(domain.RefundStatusInitiated)},
		{8, 50000, string(domain.RefundStatusInitiated)},
		{7, 50000, string(domain.RefundStatusInitiated)},
		{6, 0, RefundStatusNone},
		{0, 0, RefundStatusNone},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.daysAhead), func(t *testing.T) {
			h := newHarness(t)
			booking, _ := h.confirmedBooking("client-1", tt.daysAhead, 100000)

			res, err := h.cancel.CancelBooking(context.Background(), "client-1", booking.ID, "change of plans")
			require.NoError(t, err)

			assert.Equal(t, tt.daysAhead, res.DaysBefore)
			assert.Equal(t, tt.wantAmount, res.RefundAmount)
			assert.Equal(t, tt.wantStatus, res.RefundStatus)

			refunds := h.refunds(booking.ID)
			if tt.wantAmount == 0 {
				assert.Empty(t, refunds)
				assert.Empty(t, res.RefundID)
				return
			}
			require.Len(t, refunds, 1)
			assert.Equal(t, tt.wantAmount, refunds[0].Amount)
			assert.Equal(t, res.RefundID, refunds[0].ID)
			assert.Equal(t, domain.RefundStatusInitiated, refunds[0].Status)
		})
	}
}

func TestCancellationService_ReleasesDateForRebooking(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	booking, venue := h.confirmedBooking("client-1", 40, 100000)

	_, err := h.cancel.CancelBooking(ctx, "client-1", booking.ID, "")
	require.NoError(t, err)
	h.effects.Wait()

	cancelled := h.booking(booking.ID)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Empty(t, h.blocks(venue.ID, booking.EventDate))
	assert.Equal(t, 1, h.notifier.count(NotificationBookingCancelled))

	other := h.seedWedding("client-2", 40)
	rebooked, err := h.bookings.BookVenue(ctx, "client-2", other.ID, venue.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.EventDate, rebooked.EventDate)
}

func TestCancellationService_KeepsVendorBlocks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	booking, venue := h.confirmedBooking("client-1", 40, 1000)

	day := booking.EventDate.AddDate(0, 0, 1)
	_, err := h.availability.BlockDates(ctx, Actor{UserID: venue.VendorID}, venue.ID, day, day, "maintenance")
	require.NoError(t, err)

	_, err = h.cancel.CancelBooking(ctx, "client-1", booking.ID, "")
	require.NoError(t, err)

	assert.Empty(t, h.blocks(venue.ID, booking.EventDate))
	assert.Len(t, h.blocks(venue.ID, day), 1)
}

func TestCancellationService_Errors(t *testing.T) {
	t.Run("double cancel", func(t *testing.T) {
		h := newHarness(t)
		booking, _ := h.confirmedBooking("client-1", 40, 1000)

		_, err := h.cancel.CancelBooking(context.Background(), "client-1", booking.ID, "")
		require.NoError(t, err)

		_, err = h.cancel.CancelBooking(context.Background(), "client-1", booking.ID, "")
		assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)
		assert.True(t, domain.IsBadRequestError(err))
		assert.Len(t, h.refunds(booking.ID), 1)
	})

	t.Run("pending booking", func(t *testing.T) {
		h := newHarness(t)
		wedding := h.seedWedding("client-1", 40)
		booking, err := h.bookings.BookVenue(context.Background(), "client-1", wedding.ID, h.seedVenue("vendor-1").ID)
		require.NoError(t, err)

		_, err = h.cancel.CancelBooking(context.Background(), "client-1", booking.ID, "")
		assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)
		assert.Equal(t, domain.BookingStatusPending, h.booking(booking.ID).Status)
	})

	t.Run("not owner", func(t *testing.T) {
		h := newHarness(t)
		booking, venue := h.confirmedBooking("client-1", 40, 1000)

		_, err := h.cancel.CancelBooking(context.Background(), "stranger", booking.ID, "")
		assert.ErrorIs(t, err, domain.ErrNotWeddingOwner)
		assert.Equal(t, domain.BookingStatusConfirmed, h.booking(booking.ID).Status)
		assert.Len(t, h.blocks(venue.ID, booking.EventDate), 1)
	})

	t.Run("unknown booking", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.cancel.CancelBooking(context.Background(), "client-1", "missing", "")
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	})
}

func TestCancellationService_FallsBackToWeddingPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	wedding := h.seedWedding("client-1", 10)
	booking, err := h.bookings.BookVenue(ctx, "client-1", wedding.ID, h.seedVenue("vendor-1").ID)
	require.NoError(t, err)

	actor := Actor{UserID: "client-1"}
	started, err := h.payments.Initiate(ctx, actor, &InitiateRequest{Payable: domain.WeddingRef(wedding.ID), Amount: 30001})
	require.NoError(t, err)
	_, err = h.payments.Confirm(ctx, actor, started.PaymentID, "")
	require.NoError(t, err)

	res, err := h.cancel.CancelBooking(ctx, "client-1", booking.ID, "")
	require.NoError(t, err)

	assert.Equal(t, 15000.0, res.RefundAmount)
	refunds := h.refunds(booking.ID)
	require.Len(t, refunds, 1)
	assert.Equal(t, started.PaymentID, refunds[0].PaymentID)
}

// A client books a venue 45 days out, pays 100,000 and cancels 35 days
// before the event.
func TestBookingLifecycle_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client := Actor{UserID: "client-1"}
	wedding := h.seedWedding("client-1", 45)
	venue := h.seedVenue("vendor-1")

	booking, err := h.bookings.BookVenue(ctx, client.UserID, wedding.ID, venue.ID)
	require.NoError(t, err)

	started, err := h.payments.Initiate(ctx, client, &InitiateRequest{Payable: domain.BookingRef(booking.ID), Amount: 100000})
	require.NoError(t, err)
	_, err = h.payments.Confirm(ctx, client, started.PaymentID, "")
	require.NoError(t, err)
	h.effects.Wait()
	require.Equal(t, domain.BookingStatusConfirmed, h.booking(booking.ID).Status)

	later := newHarnessWithStore(t, h.store, h.clock.now.AddDate(0, 0, 10))
	res, err := later.cancel.CancelBooking(ctx, client.UserID, booking.ID, "venue change")
	require.NoError(t, err)

	assert.Equal(t, 35, res.DaysBefore)
	assert.Equal(t, 100000.0, res.RefundAmount)
	assert.Equal(t, string(domain.RefundStatusInitiated), res.RefundStatus)
	assert.Empty(t, h.blocks(venue.ID, booking.EventDate))
	assert.Equal(t, domain.BookingStatusCancelled, h.booking(booking.ID).Status)
}
