// Package bootstrap builds the infrastructure shared by the API server and
// the background workers from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/prohmpiriya/wedding-venue-booking/internal/metrics"
	"github.com/prohmpiriya/wedding-venue-booking/internal/notify"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/migrations"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/config"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/database"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/kafka"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	pkgredis "github.com/prohmpiriya/wedding-venue-booking/pkg/redis"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/telemetry"
	"go.uber.org/zap"
)

// Logger initializes the global logger for serviceName
func Logger(cfg *config.Config, serviceName string) error {
	return logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	})
}

// Telemetry starts tracing and metrics export and registers the instruments
func Telemetry(ctx context.Context, cfg *config.Config, serviceName string) error {
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		return err
	}
	return metrics.Init()
}

// Postgres connects to PostgreSQL
func Postgres(ctx context.Context, cfg *config.Config) (*database.PostgresDB, error) {
	return database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
}

// Store returns the Postgres unit of work, or the in-memory store when the
// database is unreachable and not required. db is nil in the latter case.
func Store(ctx context.Context, cfg *config.Config) (repository.UnitOfWork, *database.PostgresDB, error) {
	log := logger.Get()

	db, err := Postgres(ctx, cfg)
	if err != nil {
		if cfg.Database.Required {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		log.Warn("Database unavailable, using in-memory store", zap.Error(err))
		return repository.NewMemoryStore(), nil, nil
	}

	log.Info("Database connected",
		zap.Int("min_conns", cfg.Database.MinConns),
		zap.Int("max_conns", cfg.Database.MaxConns),
	)
	return repository.NewPostgresUnitOfWork(db), db, nil
}

// Migrate applies the embedded schema
func Migrate(ctx context.Context, db *database.PostgresDB) error {
	script, err := migrations.Script()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	return db.ApplySchema(ctx, script)
}

// Redis connects to Redis when enabled. A failed connection is logged and
// reported as nil so callers can run without it.
func Redis(ctx context.Context, cfg *config.Config) *pkgredis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	client, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    2,
		RetryInterval: 500 * time.Millisecond,
	})
	if err != nil {
		logger.Get().Warn("Redis unavailable, idempotency keys disabled", zap.Error(err))
		return nil
	}
	return client
}

// Gateways returns the active payment gateway and, in live mode, the Stripe
// webhook verifier. Test mode is selected when no provider credentials are set.
func Gateways(cfg *config.Config) (gateway.PaymentGateway, gateway.WebhookVerifier, error) {
	if !cfg.Payment.LiveMode() {
		return gateway.NewTestGateway(cfg.Payment.PublishableKey), nil, nil
	}

	publishable := cfg.Payment.PublishableKey
	if publishable == "" {
		publishable = cfg.Payment.KeyID
	}
	stripeGW, err := gateway.NewStripeGateway(&gateway.StripeGatewayConfig{
		SecretKey:      cfg.Payment.KeySecret,
		PublishableKey: publishable,
		WebhookSecret:  cfg.Payment.StripeWebhookSecret,
	})
	if err != nil {
		return nil, nil, err
	}

	var verifier gateway.WebhookVerifier
	if cfg.Payment.StripeWebhookSecret != "" {
		verifier = stripeGW
	}
	return stripeGW, verifier, nil
}

// Notifier returns a Kafka-backed notifier when Kafka is enabled and
// reachable, otherwise a log-only one. The returned func releases the producer.
func Notifier(ctx context.Context, cfg *config.Config) (service.NotificationPort, func()) {
	log := logger.Get()
	if !cfg.Kafka.Enabled {
		return notify.NewLogNotifier(), func() {}
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Kafka.Brokers,
		ClientID:      cfg.Kafka.ClientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		LingerMs:      10,
	})
	if err != nil {
		log.Warn("Kafka connection failed, notifications go to the log", zap.Error(err))
		return notify.NewLogNotifier(), func() {}
	}

	log.Info("Kafka notifier connected", zap.String("topic", cfg.Notification.Topic))
	return notify.NewKafkaNotifier(producer, &notify.KafkaNotifierConfig{
		Topic:       cfg.Notification.Topic,
		ServiceName: cfg.App.Name,
	}), producer.Close
}

// Shutdown flushes telemetry, ignoring a context that has already expired
func Shutdown(ctx context.Context) {
	if err := telemetry.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Get().Warn("Telemetry shutdown failed", zap.Error(err))
	}
}
