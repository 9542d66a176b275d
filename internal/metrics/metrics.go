package metrics

import (
	"context"
	"sync"

	"github.com/prohmpiriya/wedding-venue-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Booking counters
	BookingsCreated   *telemetry.Counter
	BookingsConflicts *telemetry.Counter
	BookingsConfirmed *telemetry.Counter
	BookingsCancelled *telemetry.Counter

	// Payment counters
	PaymentsInitiated *telemetry.Counter
	PaymentsConfirmed *telemetry.Counter
	WebhooksReceived  *telemetry.Counter

	// Refund counters and amounts
	RefundsIssued    *telemetry.Counter
	RefundsProcessed *telemetry.Counter
	RefundAmount     *telemetry.Histogram

	initOnce sync.Once
	initErr  error
)

// Init initializes all metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	counters := []struct {
		target **telemetry.Counter
		opts   telemetry.MetricOpts
	}{
		{&BookingsCreated, telemetry.MetricOpts{Name: "wedding_bookings_created_total", Description: "Bookings created", Unit: "1"}},
		{&BookingsConflicts, telemetry.MetricOpts{Name: "wedding_booking_conflicts_total", Description: "Booking attempts rejected by a conflict", Unit: "1"}},
		{&BookingsConfirmed, telemetry.MetricOpts{Name: "wedding_bookings_confirmed_total", Description: "Bookings confirmed by payment", Unit: "1"}},
		{&BookingsCancelled, telemetry.MetricOpts{Name: "wedding_bookings_cancelled_total", Description: "Bookings cancelled", Unit: "1"}},
		{&PaymentsInitiated, telemetry.MetricOpts{Name: "wedding_payments_initiated_total", Description: "Payments initiated", Unit: "1"}},
		{&PaymentsConfirmed, telemetry.MetricOpts{Name: "wedding_payments_confirmed_total", Description: "Payments moved to success", Unit: "1"}},
		{&WebhooksReceived, telemetry.MetricOpts{Name: "wedding_payment_webhooks_total", Description: "Payment webhooks received by outcome", Unit: "1"}},
		{&RefundsIssued, telemetry.MetricOpts{Name: "wedding_refunds_issued_total", Description: "Refunds created by cancellations", Unit: "1"}},
		{&RefundsProcessed, telemetry.MetricOpts{Name: "wedding_refunds_processed_total", Description: "Refunds sent to the provider by outcome", Unit: "1"}},
	}

	for _, c := range counters {
		counter, err := telemetry.NewCounter(c.opts)
		if err != nil {
			return err
		}
		*c.target = counter
	}

	var err error
	RefundAmount, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "wedding_refund_amount",
		Description: "Refund amounts in whole currency units",
		Unit:        "1",
	}, []float64{0, 10000, 50000, 100000, 250000, 500000, 1000000})
	return err
}

// Inc increments c if metrics were initialized
func Inc(ctx context.Context, c *telemetry.Counter, attrs ...attribute.KeyValue) {
	if c != nil {
		c.Inc(ctx, attrs...)
	}
}

// Observe records v on h if metrics were initialized
func Observe(ctx context.Context, h *telemetry.Histogram, v float64, attrs ...attribute.KeyValue) {
	if h != nil {
		h.Record(ctx, v, attrs...)
	}
}
