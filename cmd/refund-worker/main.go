package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/bootstrap"
	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/prohmpiriya/wedding-venue-booking/internal/worker"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/config"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/retry"
	"go.uber.org/zap"
)

const serviceName = "refund-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := bootstrap.Logger(cfg, serviceName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting refund worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bootstrap.Telemetry(ctx, cfg, serviceName); err != nil {
		appLog.Warn("Telemetry disabled", zap.Error(err))
	}

	// Refund rows only exist in Postgres, so there is no in-memory fallback here
	db, err := bootstrap.Postgres(ctx, cfg)
	if err != nil {
		appLog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Payments created in test mode are refunded by the test gateway even after
	// live credentials are configured.
	gateways := []gateway.PaymentGateway{gateway.NewTestGateway(cfg.Payment.PublishableKey)}
	if cfg.Payment.LiveMode() {
		live, _, err := bootstrap.Gateways(cfg)
		if err != nil {
			appLog.Fatal("Failed to create payment gateway", zap.Error(err))
		}
		gateways = append(gateways, live)
	}

	workerCfg := worker.DefaultRefundWorkerConfig()
	if cfg.RefundWorker.PollInterval > 0 {
		workerCfg.PollInterval = cfg.RefundWorker.PollInterval
	}
	if cfg.RefundWorker.BatchSize > 0 {
		workerCfg.BatchSize = cfg.RefundWorker.BatchSize
	}
	if cfg.RefundWorker.MaxRetries > 0 {
		workerCfg.Retry = &retry.Config{
			MaxRetries:      cfg.RefundWorker.MaxRetries,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		}
	}

	refundWorker := worker.NewRefundWorker(repository.NewPostgresUnitOfWork(db), workerCfg, gateways...)
	if err := refundWorker.Start(ctx); err != nil {
		appLog.Fatal("Failed to start refund worker", zap.Error(err))
	}

	appLog.Info("Refund worker started",
		zap.Duration("poll_interval", workerCfg.PollInterval),
		zap.Int("batch_size", workerCfg.BatchSize),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down worker...")
	refundWorker.Stop()

	stats := refundWorker.Stats()
	appLog.Info("Worker exited gracefully",
		zap.Int64("processed", stats.Processed),
		zap.Int64("failed", stats.Failed),
	)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	bootstrap.Shutdown(shutdownCtx)
}
