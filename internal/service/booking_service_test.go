package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingService_BookVenue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	wedding := h.seedWedding("client-1", 60)
	venue := h.seedVenue("vendor-1")

	booking, err := h.bookings.BookVenue(ctx, "client-1", wedding.ID, venue.ID)
	require.NoError(t, err)
	h.effects.Wait()

	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	assert.Equal(t, wedding.EventDate, booking.EventDate)

	blocks := h.blocks(venue.ID, wedding.EventDate)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].IsLinkedTo(booking.ID))
	assert.Equal(t, 1, h.notifier.count(NotificationBookingRequested))
}

func TestBookingService_BookVenue_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness) (clientID, weddingID, venueID string)
		wantErr error
	}{
		{
			name: "not wedding owner",
			setup: func(h *harness) (string, string, string) {
				return "intruder", h.seedWedding("client-1", 30).ID, h.seedVenue("vendor-1").ID
			},
			wantErr: domain.ErrNotWeddingOwner,
		},
		{
			name: "wedding not found",
			setup: func(h *harness) (string, string, string) {
				return "client-1", "missing", h.seedVenue("vendor-1").ID
			},
			wantErr: domain.ErrWeddingNotFound,
		},
		{
			name: "venue not found",
			setup: func(h *harness) (string, string, string) {
				return "client-1", h.seedWedding("client-1", 30).ID, "missing"
			},
			wantErr: domain.ErrVenueNotFound,
		},
		{
			name: "vendor blocked the date",
			setup: func(h *harness) (string, string, string) {
				w := h.seedWedding("client-1", 30)
				v := h.seedVenue("vendor-1")
				_, err := h.availability.BlockDates(context.Background(), Actor{UserID: "vendor-1"}, v.ID,
					w.EventDate.AddDate(0, 0, -1), w.EventDate.AddDate(0, 0, 1), "renovation")
				require.NoError(h.t, err)
				return "client-1", w.ID, v.ID
			},
			wantErr: domain.ErrVenueUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			clientID, weddingID, venueID := tt.setup(h)

			_, err := h.bookings.BookVenue(context.Background(), clientID, weddingID, venueID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBookingService_ConcurrentBookingsSameDate(t *testing.T) {
	h := newHarness(t)
	venue := h.seedVenue("vendor-1")

	const attempts = 20
	weddings := make([]*domain.Wedding, attempts)
	for i := range weddings {
		weddings[i] = h.seedWedding(fmt.Sprintf("client-%d", i), 90)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(w *domain.Wedding) {
			defer wg.Done()
			<-start
			_, err := h.bookings.BookVenue(context.Background(), w.ClientID, w.ID, venue.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case domain.IsConflictError(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(weddings[i])
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, h.blocks(venue.ID, weddings[0].EventDate), 1)
}

func TestBookingService_ConstraintIsAuthoritative(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	venue := h.seedVenue("vendor-1")
	first := h.seedWedding("client-1", 40)
	second := h.seedWedding("client-2", 40)

	_, err := h.bookings.BookVenue(ctx, "client-1", first.ID, venue.ID)
	require.NoError(t, err)

	// Pre-checks see nothing; the store must still refuse the overlap
	h.build(&blindUnitOfWork{next: h.store})

	_, err = h.bookings.BookVenue(ctx, "client-2", second.ID, venue.ID)
	assert.ErrorIs(t, err, domain.ErrVenueUnavailable)

	_, err = h.bookings.BookVenue(ctx, "client-1", first.ID, h.seedVenue("vendor-2").ID)
	assert.ErrorIs(t, err, domain.ErrWeddingAlreadyBooked)
	assert.True(t, domain.IsConflictError(err))

	assert.Len(t, h.blocks(venue.ID, first.EventDate), 1)
}

func TestBookingService_OneBookingPerWedding(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	wedding := h.seedWedding("client-1", 50)

	_, err := h.bookings.BookVenue(ctx, "client-1", wedding.ID, h.seedVenue("vendor-1").ID)
	require.NoError(t, err)

	_, err = h.bookings.BookVenue(ctx, "client-1", wedding.ID, h.seedVenue("vendor-2").ID)
	assert.ErrorIs(t, err, domain.ErrWeddingAlreadyBooked)
}

func TestBookingService_GetBooking(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	wedding := h.seedWedding("client-1", 50)
	venue := h.seedVenue("vendor-1")
	booking, err := h.bookings.BookVenue(ctx, "client-1", wedding.ID, venue.ID)
	require.NoError(t, err)

	for _, actor := range []Actor{{UserID: "client-1"}, {UserID: "vendor-1"}, {UserID: "ops", Internal: true}} {
		got, err := h.bookings.GetBooking(ctx, actor, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.ID, got.ID)
	}

	_, err = h.bookings.GetBooking(ctx, Actor{UserID: "stranger"}, booking.ID)
	assert.True(t, domain.IsForbiddenError(err))

	_, err = h.bookings.GetBooking(ctx, Actor{UserID: "client-1"}, "missing")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestBookingService_NotificationFailureDoesNotFailBooking(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errSideEffect
	wedding := h.seedWedding("client-1", 50)

	booking, err := h.bookings.BookVenue(context.Background(), "client-1", wedding.ID, h.seedVenue("vendor-1").ID)
	h.effects.Wait()

	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, 1, h.notifier.count(NotificationBookingRequested))
}
