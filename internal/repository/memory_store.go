package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
)

// MemoryStore implements UnitOfWork using in-memory storage.
// Transactions are serialized and run against a copy of the state that is
// swapped in only on success. Useful for testing and development.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	weddings     map[string]*domain.Wedding
	venues       map[string]*domain.Venue
	availability map[string]*domain.VenueAvailability
	bookings     map[string]*domain.Booking
	payments     map[string]*domain.Payment
	refunds      map[string]*domain.Refund
	invoices     map[string]*domain.Invoice
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func newMemoryState() *memoryState {
	return &memoryState{
		weddings:     make(map[string]*domain.Wedding),
		venues:       make(map[string]*domain.Venue),
		availability: make(map[string]*domain.VenueAvailability),
		bookings:     make(map[string]*domain.Booking),
		payments:     make(map[string]*domain.Payment),
		refunds:      make(map[string]*domain.Refund),
		invoices:     make(map[string]*domain.Invoice),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.weddings {
		w := *v
		c.weddings[k] = &w
	}
	for k, v := range s.venues {
		ve := *v
		c.venues[k] = &ve
	}
	for k, v := range s.availability {
		c.availability[k] = copyBlock(v)
	}
	for k, v := range s.bookings {
		c.bookings[k] = copyBooking(v)
	}
	for k, v := range s.payments {
		c.payments[k] = copyPayment(v)
	}
	for k, v := range s.refunds {
		r := *v
		c.refunds[k] = &r
	}
	for k, v := range s.invoices {
		i := *v
		c.invoices[k] = &i
	}
	return c
}

// Execute runs fn in a serialized transaction
func (s *MemoryStore) Execute(ctx context.Context, fn TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	if err := fn(ctx, &memoryTx{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) Weddings() WeddingRepository { return &memoryWeddingRepository{t.state} }
func (t *memoryTx) Venues() VenueRepository { return &memoryVenueRepository{t.state} }
func (t *memoryTx) Availability() AvailabilityRepository { return &memoryAvailabilityRepository{t.state} }
func (t *memoryTx) Bookings() BookingRepository { return &memoryBookingRepository{t.state} }
func (t *memoryTx) Payments() PaymentRepository { return &memoryPaymentRepository{t.state} }
func (t *memoryTx) Refunds() RefundRepository { return &memoryRefundRepository{t.state} }
func (t *memoryTx) Invoices() InvoiceRepository { return &memoryInvoiceRepository{t.state} }

func copyBlock(b *domain.VenueAvailability) *domain.VenueAvailability {
	c := *b
	if b.BookingID != nil {
		id := *b.BookingID
		c.BookingID = &id
	}
	return &c
}

func copyBooking(b *domain.Booking) *domain.Booking {
	c := *b
	if b.ConfirmedAt != nil {
		t := *b.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

func copyPayment(p *domain.Payment) *domain.Payment {
	c := *p
	if p.PaidAt != nil {
		t := *p.PaidAt
		c.PaidAt = &t
	}
	return &c
}

// Weddings

type memoryWeddingRepository struct{ s *memoryState }

func (r *memoryWeddingRepository) Create(ctx context.Context, wedding *domain.Wedding) error {
	w := *wedding
	r.s.weddings[wedding.ID] = &w
	return nil
}

func (r *memoryWeddingRepository) GetByID(ctx context.Context, id string) (*domain.Wedding, error) {
	w, ok := r.s.weddings[id]
	if !ok {
		return nil, domain.ErrWeddingNotFound
	}
	c := *w
	return &c, nil
}

func (r *memoryWeddingRepository) GetForUpdate(ctx context.Context, id string) (*domain.Wedding, error) {
	return r.GetByID(ctx, id)
}

// Venues

type memoryVenueRepository struct{ s *memoryState }

func (r *memoryVenueRepository) Create(ctx context.Context, venue *domain.Venue) error {
	v := *venue
	r.s.venues[venue.ID] = &v
	return nil
}

func (r *memoryVenueRepository) GetByID(ctx context.Context, id string) (*domain.Venue, error) {
	v, ok := r.s.venues[id]
	if !ok {
		return nil, domain.ErrVenueNotFound
	}
	c := *v
	return &c, nil
}

func (r *memoryVenueRepository) GetForUpdate(ctx context.Context, id string) (*domain.Venue, error) {
	return r.GetByID(ctx, id)
}

// Availability

type memoryAvailabilityRepository struct{ s *memoryState }

func (r *memoryAvailabilityRepository) Create(ctx context.Context, block *domain.VenueAvailability) error {
	for _, existing := range r.s.availability {
		if existing.VenueID == block.VenueID && existing.Overlaps(block.StartDate, block.EndDate) {
			return domain.ErrDateAlreadyBlocked
		}
	}
	r.s.availability[block.ID] = copyBlock(block)
	return nil
}

func (r *memoryAvailabilityRepository) FindOverlapping(ctx context.Context, venueID string, start, end time.Time) ([]*domain.VenueAvailability, error) {
	var blocks []*domain.VenueAvailability
	for _, b := range r.s.availability {
		if b.VenueID == venueID && b.Overlaps(start, end) {
			blocks = append(blocks, copyBlock(b))
		}
	}
	sortBlocks(blocks)
	return blocks, nil
}

func (r *memoryAvailabilityRepository) ListByVenue(ctx context.Context, venueID string, from, to time.Time) ([]*domain.VenueAvailability, error) {
	return r.FindOverlapping(ctx, venueID, from, to)
}

func (r *memoryAvailabilityRepository) DeleteByBooking(ctx context.Context, bookingID string) (int64, error) {
	var n int64
	for id, b := range r.s.availability {
		if b.IsLinkedTo(bookingID) {
			delete(r.s.availability, id)
			n++
		}
	}
	return n, nil
}

func sortBlocks(blocks []*domain.VenueAvailability) {
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].StartDate.Before(blocks[j].StartDate)
	})
}

// Bookings

type memoryBookingRepository struct{ s *memoryState }

func (r *memoryBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	for _, existing := range r.s.bookings {
		if existing.WeddingID == booking.WeddingID && existing.IsActive() {
			return domain.ErrWeddingAlreadyBooked
		}
	}
	r.s.bookings[booking.ID] = copyBooking(booking)
	return nil
}

func (r *memoryBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return copyBooking(b), nil
}

func (r *memoryBookingRepository) GetActiveByWedding(ctx context.Context, weddingID string) (*domain.Booking, error) {
	for _, b := range r.s.bookings {
		if b.WeddingID == weddingID && b.IsActive() {
			return copyBooking(b), nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (r *memoryBookingRepository) Confirm(ctx context.Context, id string, at time.Time) (bool, error) {
	b, ok := r.s.bookings[id]
	if !ok {
		return false, domain.ErrBookingNotFound
	}
	if b.Status != domain.BookingStatusPending {
		return false, nil
	}
	b.Status = domain.BookingStatusConfirmed
	b.ConfirmedAt = &at
	b.UpdatedAt = at
	return true, nil
}

func (r *memoryBookingRepository) Cancel(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	b, ok := r.s.bookings[id]
	if !ok {
		return false, domain.ErrBookingNotFound
	}
	if b.Status != domain.BookingStatusConfirmed {
		return false, nil
	}
	b.Status = domain.BookingStatusCancelled
	b.CancellationReason = reason
	b.CancelledAt = &at
	b.UpdatedAt = at
	return true, nil
}

// Payments

type memoryPaymentRepository struct{ s *memoryState }

func (r *memoryPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	for _, existing := range r.s.payments {
		if existing.ProviderRef == payment.ProviderRef {
			return domain.ErrPaymentAlreadyExists
		}
	}
	r.s.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (r *memoryPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return copyPayment(p), nil
}

func (r *memoryPaymentRepository) GetByProviderRef(ctx context.Context, providerRef string) (*domain.Payment, error) {
	for _, p := range r.s.payments {
		if p.ProviderRef == providerRef {
			return copyPayment(p), nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *memoryPaymentRepository) GetLatestByPayable(ctx context.Context, ref domain.PayableRef, status domain.PaymentStatus) (*domain.Payment, error) {
	var latest *domain.Payment
	for _, p := range r.s.payments {
		if p.Payable != ref || p.Status != status {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return copyPayment(latest), nil
}

func (r *memoryPaymentRepository) MarkSucceeded(ctx context.Context, id, providerPaymentRef string, at time.Time) (bool, error) {
	p, ok := r.s.payments[id]
	if !ok {
		return false, domain.ErrPaymentNotFound
	}
	if p.Status != domain.PaymentStatusPending {
		return false, nil
	}
	for _, other := range r.s.payments {
		if other.ID != id && other.Payable == p.Payable && other.Status == domain.PaymentStatusSuccess {
			return false, domain.ErrAlreadyPaid
		}
	}
	p.Status = domain.PaymentStatusSuccess
	p.ProviderPaymentRef = providerPaymentRef
	p.PaidAt = &at
	p.UpdatedAt = at
	return true, nil
}

// Refunds

type memoryRefundRepository struct{ s *memoryState }

func (r *memoryRefundRepository) Create(ctx context.Context, refund *domain.Refund) error {
	for _, existing := range r.s.refunds {
		if existing.BookingID == refund.BookingID {
			return domain.ErrRefundAlreadyExists
		}
	}
	c := *refund
	r.s.refunds[refund.ID] = &c
	return nil
}

func (r *memoryRefundRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Refund, error) {
	var refunds []*domain.Refund
	for _, rf := range r.s.refunds {
		if rf.BookingID == bookingID {
			c := *rf
			refunds = append(refunds, &c)
		}
	}
	sortRefunds(refunds)
	return refunds, nil
}

func (r *memoryRefundRepository) ListByStatus(ctx context.Context, status domain.RefundStatus, limit int) ([]*domain.Refund, error) {
	var refunds []*domain.Refund
	for _, rf := range r.s.refunds {
		if rf.Status == status {
			c := *rf
			refunds = append(refunds, &c)
		}
	}
	sortRefunds(refunds)
	if limit > 0 && len(refunds) > limit {
		refunds = refunds[:limit]
	}
	return refunds, nil
}

func (r *memoryRefundRepository) UpdateStatus(ctx context.Context, id string, from, to domain.RefundStatus, providerRefundRef, failureReason string) (bool, error) {
	rf, ok := r.s.refunds[id]
	if !ok {
		return false, domain.ErrRefundNotFound
	}
	if rf.Status != from {
		return false, nil
	}
	rf.Status = to
	if providerRefundRef != "" {
		rf.ProviderRefundRef = providerRefundRef
	}
	rf.FailureReason = failureReason
	rf.UpdatedAt = time.Now().UTC()
	return true, nil
}

func sortRefunds(refunds []*domain.Refund) {
	sort.Slice(refunds, func(i, j int) bool {
		return refunds[i].CreatedAt.Before(refunds[j].CreatedAt)
	})
}

// Invoices

type memoryInvoiceRepository struct{ s *memoryState }

func (r *memoryInvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error) {
	if existing, ok := r.s.invoices[invoice.PaymentID]; ok {
		c := *existing
		return &c, nil
	}
	c := *invoice
	r.s.invoices[invoice.PaymentID] = &c
	out := c
	return &out, nil
}

func (r *memoryInvoiceRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Invoice, error) {
	inv, ok := r.s.invoices[paymentID]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	c := *inv
	return &c, nil
}
