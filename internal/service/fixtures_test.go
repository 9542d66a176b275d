package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec_test_secret"

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type sentNotification struct {
	Kind      NotificationKind
	Recipient string
	Payload   map[string]any
}

// recordingNotifier captures notifications and can be told to fail
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Send(ctx context.Context, kind NotificationKind, recipient string, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{Kind: kind, Recipient: recipient, Payload: payload})
	return n.err
}

func (n *recordingNotifier) count(kind NotificationKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.Kind == kind {
			c++
		}
	}
	return c
}

// countingInvoices wraps an InvoicePort and counts Generate calls
type countingInvoices struct {
	mu    sync.Mutex
	next  InvoicePort
	calls int
	err   error
}

func (c *countingInvoices) Generate(ctx context.Context, payable domain.PayableRef, paymentID string) (*domain.Invoice, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.next.Generate(ctx, payable, paymentID)
}

func (c *countingInvoices) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type harness struct {
	t            *testing.T
	store        *repository.MemoryStore
	notifier     *recordingNotifier
	invoices     *countingInvoices
	effects      *SideEffects
	clock        fixedClock
	bookings     *BookingService
	payments     *PaymentService
	cancel       *CancellationService
	availability *AvailabilityService
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithStore(t, repository.NewMemoryStore(), time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
}

func newHarnessWithStore(t *testing.T, uow *repository.MemoryStore, now time.Time) *harness {
	h := &harness{
		t:        t,
		store:    uow,
		notifier: &recordingNotifier{},
		effects:  NewSideEffects(),
		clock:    fixedClock{now: now},
	}
	h.invoices = &countingInvoices{next: NewInvoiceService(uow)}
	h.build(uow)
	return h
}

// build wires the services against uow, which may wrap the memory store
func (h *harness) build(uow repository.UnitOfWork) {
	h.bookings = NewBookingService(uow, h.notifier, h.effects)
	h.payments = NewPaymentService(uow, gateway.NewTestGateway("pk_test"), gateway.NewHMACVerifier(webhookSecret),
		h.notifier, h.invoices, h.effects, h.clock, &PaymentServiceConfig{Currency: "INR"})
	h.cancel = NewCancellationService(uow, h.notifier, h.effects, h.clock)
	h.availability = NewAvailabilityService(uow)
}

func (h *harness) seedWedding(clientID string, daysAhead int) *domain.Wedding {
	h.t.Helper()
	w := domain.NewWedding(clientID, h.clock.now.AddDate(0, 0, daysAhead), "Udaipur", 250, 2000000)
	require.NoError(h.t, h.store.Execute(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Weddings().Create(ctx, w)
	}))
	return w
}

func (h *harness) seedVenue(vendorID string) *domain.Venue {
	h.t.Helper()
	v := domain.NewVenue(vendorID, "Lake Palace Lawns", 400, 100000)
	require.NoError(h.t, h.store.Execute(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Venues().Create(ctx, v)
	}))
	return v
}

// confirmedBooking books, pays and confirms a booking for a fresh wedding
func (h *harness) confirmedBooking(clientID string, daysAhead int, amount float64) (*domain.Booking, *domain.Venue) {
	h.t.Helper()
	ctx := context.Background()
	wedding := h.seedWedding(clientID, daysAhead)
	venue := h.seedVenue("vendor-" + clientID)

	booking, err := h.bookings.BookVenue(ctx, clientID, wedding.ID, venue.ID)
	require.NoError(h.t, err)

	actor := Actor{UserID: clientID}
	started, err := h.payments.Initiate(ctx, actor, &InitiateRequest{Payable: domain.BookingRef(booking.ID), Amount: amount})
	require.NoError(h.t, err)
	_, err = h.payments.Confirm(ctx, actor, started.PaymentID, "")
	require.NoError(h.t, err)
	h.effects.Wait()
	return booking, venue
}

func (h *harness) booking(id string) *domain.Booking {
	h.t.Helper()
	var b *domain.Booking
	require.NoError(h.t, h.store.Execute(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		b, err = tx.Bookings().GetByID(ctx, id)
		return err
	}))
	return b
}

func (h *harness) payment(id string) *domain.Payment {
	h.t.Helper()
	var p *domain.Payment
	require.NoError(h.t, h.store.Execute(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		p, err = tx.Payments().GetByID(ctx, id)
		return err
	}))
	return p
}

func (h *harness) blocks(venueID string, date time.Time) []*domain.VenueAvailability {
	h.t.Helper()
	var blocks []*domain.VenueAvailability
	require.NoError(h.t, h.store.Execute(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		blocks, err = tx.Availability().FindOverlapping(ctx, venueID, date, date)
		return err
	}))
	return blocks
}

func (h *harness) refunds(bookingID string) []*domain.Refund {
	h.t.Helper()
	var refunds []*domain.Refund
	require.NoError(h.t, h.store.Execute(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		refunds, err = tx.Refunds().ListByBooking(ctx, bookingID)
		return err
	}))
	return refunds
}

// blindUnitOfWork hides existing rows from the pre-checks so that only the
// store constraints can detect a conflict.
type blindUnitOfWork struct {
	next repository.UnitOfWork
}

func (u *blindUnitOfWork) Execute(ctx context.Context, fn repository.TxFunc) error {
	return u.next.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, &blindTx{Tx: tx})
	})
}

type blindTx struct {
	repository.Tx
}

func (t *blindTx) Availability() repository.AvailabilityRepository {
	return &blindAvailability{AvailabilityRepository: t.Tx.Availability()}
}

func (t *blindTx) Bookings() repository.BookingRepository {
	return &blindBookings{BookingRepository: t.Tx.Bookings()}
}

func (t *blindTx) Payments() repository.PaymentRepository {
	return &blindPayments{PaymentRepository: t.Tx.Payments()}
}

type blindAvailability struct {
	repository.AvailabilityRepository
}

func (b *blindAvailability) FindOverlapping(ctx context.Context, venueID string, start, end time.Time) ([]*domain.VenueAvailability, error) {
	return nil, nil
}

type blindBookings struct {
	repository.BookingRepository
}

func (b *blindBookings) GetActiveByWedding(ctx context.Context, weddingID string) (*domain.Booking, error) {
	return nil, domain.ErrBookingNotFound
}

type blindPayments struct {
	repository.PaymentRepository
}

func (b *blindPayments) GetLatestByPayable(ctx context.Context, ref domain.PayableRef, status domain.PaymentStatus) (*domain.Payment, error) {
	return nil, domain.ErrPaymentNotFound
}

var errSideEffect = errors.New("downstream unavailable")
