package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/wedding-venue-booking/internal/bootstrap"
	"github.com/prohmpiriya/wedding-venue-booking/internal/di"
	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/config"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/middleware"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := bootstrap.Logger(cfg, cfg.App.Name); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()
	appLog := logger.Get()

	ctx := context.Background()

	if err := bootstrap.Telemetry(ctx, cfg, cfg.App.Name); err != nil {
		appLog.Warn("Telemetry disabled", zap.Error(err))
	}

	uow, db, err := bootstrap.Store(ctx, cfg)
	if err != nil {
		appLog.Fatal("Failed to open store", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	redisClient := bootstrap.Redis(ctx, cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	notifier, closeNotifier := bootstrap.Notifier(ctx, cfg)
	defer closeNotifier()

	gw, stripeVerifier, err := bootstrap.Gateways(cfg)
	if err != nil {
		appLog.Fatal("Failed to create payment gateway", zap.Error(err))
	}
	live := gateway.IsLive(gw)
	appLog.Info("Payment gateway ready",
		zap.String("gateway", gw.Name()),
		zap.String("provider", string(gw.Provider())),
		zap.Bool("live", live),
	)
	if live && stripeVerifier == nil {
		appLog.Warn("Stripe webhooks disabled, live gateway has no webhook secret")
	}

	container := di.NewContainer(&di.ContainerConfig{
		DB:              db,
		Redis:           redisClient,
		UoW:             uow,
		Gateway:         gw,
		Notifier:        notifier,
		Clock:           service.SystemClock{},
		WebhookSecret:   cfg.Payment.WebhookSecret,
		SignatureHeader: cfg.Payment.SignatureHeader,
		StripeVerifier:  stripeVerifier,
		Currency:        cfg.Payment.Currency,
	})

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware())
	router.Use(middleware.AccessLog(appLog))

	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// Write endpoints replay responses for a repeated X-Idempotency-Key
	idempotent := func(c *gin.Context) { c.Next() }
	if redisClient != nil {
		idempotent = middleware.Idempotency(middleware.DefaultIdempotencyConfig(redisClient))
	}

	v1 := router.Group("/api/v1")
	{
		// Provider callbacks are authenticated by signature, not by token
		webhooks := v1.Group("/webhooks")
		webhooks.POST("/payments", container.WebhookHandler.HandlePaymentWebhook)
		webhooks.POST("/stripe", container.WebhookHandler.HandleStripeWebhook)

		authed := v1.Group("")
		authed.Use(middleware.Auth(&middleware.AuthConfig{
			Secret:       cfg.JWT.Secret,
			Issuer:       cfg.JWT.Issuer,
			TrustHeaders: cfg.JWT.TrustHeaders,
		}))

		bookings := authed.Group("/bookings")
		bookings.POST("", idempotent, container.BookingHandler.CreateBooking)
		bookings.GET("/:id", container.BookingHandler.GetBooking)
		bookings.POST("/:id/cancel", idempotent, container.BookingHandler.CancelBooking)

		payments := authed.Group("/payments")
		payments.POST("/initiate", idempotent, container.PaymentHandler.InitiatePayment)
		payments.POST("/:id/confirm", idempotent, container.PaymentHandler.ConfirmPayment)
		payments.GET("/:id", container.PaymentHandler.GetPayment)

		venues := authed.Group("/venues")
		venues.POST("/:id/availability", container.AvailabilityHandler.BlockDates)
		venues.GET("/:id/availability", container.AvailabilityHandler.ListBlocks)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLog.Info("Wedding booking service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let post-commit notifications and invoices finish before the producer closes
	container.Effects.Wait()
	bootstrap.Shutdown(shutdownCtx)

	appLog.Info("Server exited gracefully")
}
