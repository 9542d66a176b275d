package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"go.uber.org/zap"
)

// Actor is the authenticated caller of a workflow
type Actor struct {
	UserID string
	// Internal actors (staff, back-office jobs) may act on any wedding
	Internal bool
}

// NotificationKind names an outbound notification
type NotificationKind string

const (
	NotificationBookingRequested NotificationKind = "booking.requested"
	NotificationPaymentConfirmed NotificationKind = "payment.confirmed"
	NotificationBookingCancelled NotificationKind = "booking.cancelled"
)

// NotificationPort delivers notifications to users. Delivery is best effort.
type NotificationPort interface {
	Send(ctx context.Context, kind NotificationKind, recipient string, payload map[string]any) error
}

// InvoicePort generates the invoice for a settled payment
type InvoicePort interface {
	Generate(ctx context.Context, payable domain.PayableRef, paymentID string) (*domain.Invoice, error)
}

// Clock returns the current time
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// SideEffects runs post-commit work in the background. Failures are logged
// and never reach the caller, and the work outlives the request context.
type SideEffects struct {
	wg sync.WaitGroup
}

// NewSideEffects creates a dispatcher
func NewSideEffects() *SideEffects {
	return &SideEffects{}
}

// Go runs fn asynchronously under name
func (s *SideEffects) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	log := logger.FromContext(ctx)
	detached := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("side effect panicked", zap.String("side_effect", name), zap.String("panic", fmt.Sprint(r)))
			}
		}()

		if err := fn(detached); err != nil {
			log.Warn("side effect failed", zap.String("side_effect", name), zap.Error(err))
		}
	}()
}

// Wait blocks until every dispatched side effect has finished
func (s *SideEffects) Wait() {
	s.wg.Wait()
}
