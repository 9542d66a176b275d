package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/prohmpiriya/wedding-venue-booking/internal/metrics"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/retry"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RefundWorkerConfig contains configuration for the refund worker
type RefundWorkerConfig struct {
	// PollInterval is the interval between scans for initiated refunds
	PollInterval time.Duration
	// BatchSize is the number of refunds to process per scan
	BatchSize int
	// Retry controls gateway retries for a single refund
	Retry *retry.Config
}

// DefaultRefundWorkerConfig returns default configuration
func DefaultRefundWorkerConfig() *RefundWorkerConfig {
	return &RefundWorkerConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    20,
		Retry: &retry.Config{
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	}
}

// RefundStats is a snapshot of the worker's counters
type RefundStats struct {
	Processed    int64
	Failed       int64
	LastScanTime time.Time
}

// RefundWorker moves initiated refunds to processed or failed by calling the
// gateway that took the original payment. A refund row changes status only
// through a check-and-set from initiated, so two workers never both settle it.
type RefundWorker struct {
	uow      repository.UnitOfWork
	gateways map[domain.PaymentProvider]gateway.PaymentGateway
	config   *RefundWorkerConfig
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	stats    RefundStats
}

// NewRefundWorker creates a refund worker. Each gateway is registered under
// the provider it reports.
func NewRefundWorker(uow repository.UnitOfWork, config *RefundWorkerConfig, gateways ...gateway.PaymentGateway) *RefundWorker {
	defaults := DefaultRefundWorkerConfig()
	if config == nil {
		config = defaults
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Retry == nil {
		config.Retry = defaults.Retry
	}

	byProvider := make(map[domain.PaymentProvider]gateway.PaymentGateway, len(gateways))
	for _, g := range gateways {
		if g != nil {
			byProvider[g.Provider()] = g
		}
	}

	return &RefundWorker{
		uow:      uow,
		gateways: byProvider,
		config:   config,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the polling loop
func (w *RefundWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("refund worker already running")
	}
	w.running = true
	w.mu.Unlock()

	logger.Get().Info("Starting refund worker", zap.Duration("poll_interval", w.config.PollInterval))

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop stops the polling loop and waits for the current batch
func (w *RefundWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	logger.Get().Info("Refund worker stopped")
}

// Stats returns a copy of the worker counters
func (w *RefundWorker) Stats() RefundStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *RefundWorker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.ProcessBatch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch handles one batch of initiated refunds and returns how many
// reached a final status.
func (w *RefundWorker) ProcessBatch(ctx context.Context) int {
	log := logger.FromContext(ctx)

	var refunds []*domain.Refund
	err := w.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		refunds, err = tx.Refunds().ListByStatus(ctx, domain.RefundStatusInitiated, w.config.BatchSize)
		return err
	})

	w.mu.Lock()
	w.stats.LastScanTime = time.Now()
	w.mu.Unlock()

	if err != nil {
		log.Error("Failed to list initiated refunds", zap.Error(err))
		return 0
	}

	done := 0
	for _, refund := range refunds {
		if ctx.Err() != nil {
			break
		}
		ok, err := w.processRefund(ctx, refund)
		if err != nil {
			log.Error("Failed to process refund", zap.String("refund_id", refund.ID), zap.Error(err))
			continue
		}
		if ok {
			done++
		}
	}
	return done
}

func (w *RefundWorker) processRefund(ctx context.Context, refund *domain.Refund) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "worker.refund.process")
	defer span.End()
	span.SetAttributes(attribute.String("refund_id", refund.ID))

	var payment *domain.Payment
	err := w.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		payment, err = tx.Payments().GetByID(ctx, refund.PaymentID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}

	gw, ok := w.gateways[payment.Provider]
	if !ok {
		return w.finish(ctx, refund, domain.RefundStatusFailed, "", fmt.Sprintf("no gateway for provider %s", payment.Provider))
	}

	var result *gateway.RefundResult
	err = retry.Run(ctx, w.config.Retry, func(ctx context.Context) error {
		var err error
		result, err = gw.Refund(ctx, &gateway.RefundRequest{
			OrderRef:           payment.ProviderRef,
			ProviderPaymentRef: payment.ProviderPaymentRef,
			Amount:             refund.Amount,
			Currency:           refund.Currency,
			RefundID:           refund.ID,
		})
		return err
	})
	if errors.Is(err, retry.ErrContextCanceled) {
		// picked up again on the next run
		return false, nil
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return w.finish(ctx, refund, domain.RefundStatusFailed, "", err.Error())
	}
	return w.finish(ctx, refund, domain.RefundStatusProcessed, result.ProviderRefundRef, "")
}

func (w *RefundWorker) finish(ctx context.Context, refund *domain.Refund, to domain.RefundStatus, providerRef, reason string) (bool, error) {
	var updated bool
	err := w.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		updated, err = tx.Refunds().UpdateStatus(ctx, refund.ID, domain.RefundStatusInitiated, to, providerRef, reason)
		return err
	})
	if err != nil {
		return false, err
	}
	if !updated {
		return false, nil
	}

	metrics.Inc(ctx, metrics.RefundsProcessed, attribute.String("status", string(to)))
	w.mu.Lock()
	if to == domain.RefundStatusProcessed {
		w.stats.Processed++
	} else {
		w.stats.Failed++
	}
	w.mu.Unlock()

	fields := []zap.Field{
		zap.String("refund_id", refund.ID),
		zap.String("booking_id", refund.BookingID),
		zap.Float64("amount", refund.Amount),
	}
	if to == domain.RefundStatusProcessed {
		logger.FromContext(ctx).Event("refund.processed", append(fields, zap.String("provider_refund_ref", providerRef))...)
	} else {
		logger.FromContext(ctx).Event("refund.failed", append(fields, zap.String("reason", reason))...)
	}
	return true, nil
}
