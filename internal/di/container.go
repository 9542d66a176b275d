package di

import (
	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/prohmpiriya/wedding-venue-booking/internal/handler"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/database"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/redis"
)

// Container holds all dependencies for the booking core
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client
	UoW   repository.UnitOfWork

	// Ports
	Gateway  gateway.PaymentGateway
	Notifier service.NotificationPort
	Effects  *service.SideEffects

	// Services
	BookingService      *service.BookingService
	PaymentService      *service.PaymentService
	CancellationService *service.CancellationService
	InvoiceService      *service.InvoiceService
	AvailabilityService *service.AvailabilityService

	// Handlers
	HealthHandler       *handler.HealthHandler
	BookingHandler      *handler.BookingHandler
	PaymentHandler      *handler.PaymentHandler
	WebhookHandler      *handler.WebhookHandler
	AvailabilityHandler *handler.AvailabilityHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB       *database.PostgresDB
	Redis    *redis.Client
	UoW      repository.UnitOfWork
	Gateway  gateway.PaymentGateway
	Notifier service.NotificationPort
	Clock    service.Clock

	WebhookSecret   string
	SignatureHeader string
	// StripeVerifier enables the Stripe-signed webhook route when set
	StripeVerifier gateway.WebhookVerifier
	Currency       string
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:       cfg.DB,
		Redis:    cfg.Redis,
		UoW:      cfg.UoW,
		Gateway:  cfg.Gateway,
		Notifier: cfg.Notifier,
		Effects:  service.NewSideEffects(),
	}

	// Initialize services
	c.InvoiceService = service.NewInvoiceService(c.UoW)
	c.BookingService = service.NewBookingService(c.UoW, c.Notifier, c.Effects)
	c.PaymentService = service.NewPaymentService(
		c.UoW,
		c.Gateway,
		gateway.NewHMACVerifier(cfg.WebhookSecret),
		c.Notifier,
		c.InvoiceService,
		c.Effects,
		cfg.Clock,
		&service.PaymentServiceConfig{Currency: cfg.Currency},
	)
	c.CancellationService = service.NewCancellationService(c.UoW, c.Notifier, c.Effects, cfg.Clock)
	c.AvailabilityService = service.NewAvailabilityService(c.UoW)

	// Initialize handlers
	components := map[string]handler.HealthChecker{"database": nil, "redis": nil}
	if c.DB != nil {
		components["database"] = c.DB
	}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(components)
	c.BookingHandler = handler.NewBookingHandler(c.BookingService, c.CancellationService)
	c.PaymentHandler = handler.NewPaymentHandler(c.PaymentService)
	c.WebhookHandler = handler.NewWebhookHandler(c.PaymentService, &handler.WebhookHandlerConfig{
		SignatureHeader: cfg.SignatureHeader,
		Stripe:          cfg.StripeVerifier,
	})
	c.AvailabilityHandler = handler.NewAvailabilityHandler(c.AvailabilityService)

	return c
}
