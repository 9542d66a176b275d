package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/prohmpiriya/wedding-venue-booking/internal/metrics"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// InitiateRequest starts a payment against a booking or a wedding
type InitiateRequest struct {
	Payable domain.PayableRef
	Amount  float64
	PayeeID string
}

// InitiateResult is what the client needs to open checkout
type InitiateResult struct {
	OrderRef    string  `json:"order_ref"`
	ProviderKey string  `json:"provider_key"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	PaymentID   string  `json:"payment_id"`
	TestMode    bool    `json:"test_mode"`
}

// ConfirmResult is the outcome of a direct confirmation
type ConfirmResult struct {
	Payment          *domain.Payment
	AlreadyProcessed bool
}

// WebhookResult is the outcome of a provider callback
type WebhookResult struct {
	Success          bool   `json:"success"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`
	Ignored          bool   `json:"ignored,omitempty"`
	PaymentID        string `json:"payment_id,omitempty"`
}

// PaymentServiceConfig contains configuration for the payment service
type PaymentServiceConfig struct {
	Currency string
}

// PaymentService owns the payment lifecycle: pending on initiate, success on
// confirm. Success is terminal and is reached at most once per payment.
type PaymentService struct {
	uow      repository.UnitOfWork
	gateway  gateway.PaymentGateway
	verifier gateway.WebhookVerifier
	notifier NotificationPort
	invoices InvoicePort
	effects  *SideEffects
	clock    Clock
	currency string
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	uow repository.UnitOfWork,
	gw gateway.PaymentGateway,
	verifier gateway.WebhookVerifier,
	notifier NotificationPort,
	invoices InvoicePort,
	effects *SideEffects,
	clock Clock,
	cfg *PaymentServiceConfig,
) *PaymentService {
	currency := "INR"
	if cfg != nil && cfg.Currency != "" {
		currency = cfg.Currency
	}
	if effects == nil {
		effects = NewSideEffects()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &PaymentService{
		uow:      uow,
		gateway:  gw,
		verifier: verifier,
		notifier: notifier,
		invoices: invoices,
		effects:  effects,
		clock:    clock,
		currency: currency,
	}
}

// Initiate registers an order with the gateway and records a pending payment.
// The gateway call happens outside any transaction. A pending payment for the
// same payable is handed back when payer and amount match and rejects the
// request otherwise.
func (s *PaymentService) Initiate(ctx context.Context, actor Actor, req *InitiateRequest) (*InitiateResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.initiate")
	defer span.End()
	log := logger.FromContext(ctx)

	if req == nil {
		return nil, domain.ErrInvalidPayableRef
	}
	if err := req.Payable.Validate(); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	span.SetAttributes(attribute.String("payable", req.Payable.String()))

	var (
		payeeID = req.PayeeID
		pending *domain.Payment
	)
	err := s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		resolved, err := s.authorizePayable(ctx, tx, actor, req.Payable)
		if err != nil {
			return err
		}
		if payeeID == "" {
			payeeID = resolved
		}

		existing, err := tx.Payments().GetLatestByPayable(ctx, req.Payable, domain.PaymentStatusPending)
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			return nil
		case err != nil:
			return err
		case existing.PayerID == actor.UserID && existing.Amount == req.Amount &&
			existing.Currency == s.currency && existing.Provider == s.gateway.Provider():
			pending = existing
			return nil
		}
		return domain.ErrPaymentInProgress
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if pending != nil {
		log.Event("payment.reused",
			zap.String("payment_id", pending.ID),
			zap.String("payable", pending.Payable.String()),
			zap.String("order_ref", pending.ProviderRef),
		)
		return s.initiateResult(pending), nil
	}

	order, err := s.gateway.CreateOrder(ctx, &gateway.OrderRequest{
		Amount:   req.Amount,
		Currency: s.currency,
		Receipt:  req.Payable.String(),
		Metadata: map[string]string{
			"payable_kind": string(req.Payable.Kind),
			"payable_id":   req.Payable.ID,
			"payer_id":     actor.UserID,
		},
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	payment, err := domain.NewPayment(req.Payable, actor.UserID, payeeID, req.Amount, s.currency, s.gateway.Provider(), order.OrderRef)
	if err != nil {
		return nil, err
	}
	if err := s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Payments().Create(ctx, payment)
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	metrics.Inc(ctx, metrics.PaymentsInitiated, attribute.String("provider", string(payment.Provider)))
	log.Event("payment.initiated",
		zap.String("payment_id", payment.ID),
		zap.String("payable", payment.Payable.String()),
		zap.String("provider", string(payment.Provider)),
		zap.String("order_ref", payment.ProviderRef),
		zap.Float64("amount", payment.Amount),
	)

	return s.initiateResult(payment), nil
}

func (s *PaymentService) initiateResult(payment *domain.Payment) *InitiateResult {
	return &InitiateResult{
		OrderRef:    payment.ProviderRef,
		ProviderKey: s.gateway.PublicKey(),
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		PaymentID:   payment.ID,
		TestMode:    payment.IsTestMode(),
	}
}

// authorizePayable checks actor may pay for ref and returns the default payee
func (s *PaymentService) authorizePayable(ctx context.Context, tx repository.Tx, actor Actor, ref domain.PayableRef) (string, error) {
	switch ref.Kind {
	case domain.PayableKindBooking:
		booking, err := tx.Bookings().GetByID(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		wedding, err := tx.Weddings().GetByID(ctx, booking.WeddingID)
		if err != nil {
			return "", err
		}
		if !actor.Internal && !wedding.IsOwnedBy(actor.UserID) {
			return "", domain.ErrNotWeddingOwner
		}
		if !booking.IsActive() {
			return "", domain.ErrBookingCancelled
		}
		if err := ensureUnpaid(ctx, tx, ref); err != nil {
			return "", err
		}
		venue, err := tx.Venues().GetByID(ctx, booking.VenueID)
		if err != nil {
			return "", err
		}
		return venue.VendorID, nil

	case domain.PayableKindWedding:
		wedding, err := tx.Weddings().GetByID(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		if !actor.Internal && !wedding.IsOwnedBy(actor.UserID) {
			return "", domain.ErrNotWeddingOwner
		}
		return "", ensureUnpaid(ctx, tx, ref)
	}
	return "", domain.ErrInvalidPayableRef
}

func ensureUnpaid(ctx context.Context, tx repository.Tx, ref domain.PayableRef) error {
	_, err := tx.Payments().GetLatestByPayable(ctx, ref, domain.PaymentStatusSuccess)
	switch {
	case err == nil:
		return domain.ErrAlreadyPaid
	case errors.Is(err, domain.ErrPaymentNotFound):
		return nil
	}
	return err
}

// Confirm settles a payment on behalf of its payer. Confirming a payment that
// already succeeded returns it unchanged.
func (s *PaymentService) Confirm(ctx context.Context, actor Actor, paymentID, providerPaymentRef string) (*ConfirmResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.confirm")
	defer span.End()
	span.SetAttributes(attribute.String("payment_id", paymentID))

	var (
		result       ConfirmResult
		transitioned bool
	)
	err := s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		payment, err := tx.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.PayerID != actor.UserID {
			return domain.ErrNotPayer
		}
		if payment.IsSuccess() {
			result = ConfirmResult{Payment: payment, AlreadyProcessed: true}
			return nil
		}

		ref := providerPaymentRef
		if ref == "" {
			if !payment.IsTestMode() {
				return domain.ErrPaymentRefRequired
			}
			ref = "test_pay_" + randomHex(12)
		}

		transitioned, err = s.settle(ctx, tx, payment, ref)
		if err != nil {
			return err
		}
		updated, err := tx.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		result = ConfirmResult{Payment: updated, AlreadyProcessed: !transitioned}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if transitioned {
		s.afterSettle(ctx, result.Payment, "direct")
	}
	return &result, nil
}

// ConfirmByWebhook settles the payment behind orderRef. It is safe to call
// repeatedly with the same arguments: only the first call writes anything.
// An unknown orderRef is not an error, and neither is a capture for a payable
// that another payment already settled; both come back with Success false.
func (s *PaymentService) ConfirmByWebhook(ctx context.Context, orderRef, providerPaymentRef string) (*WebhookResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.confirm_by_webhook")
	defer span.End()
	span.SetAttributes(attribute.String("order_ref", orderRef))
	log := logger.FromContext(ctx)

	var (
		result       WebhookResult
		settled      *domain.Payment
		transitioned bool
	)
	err := s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		payment, err := tx.Payments().GetByProviderRef(ctx, orderRef)
		if errors.Is(err, domain.ErrPaymentNotFound) {
			result = WebhookResult{Success: false}
			return nil
		}
		if err != nil {
			return err
		}

		result.PaymentID = payment.ID
		if payment.IsSuccess() {
			result.Success, result.AlreadyProcessed = true, true
			return nil
		}

		transitioned, err = s.settle(ctx, tx, payment, providerPaymentRef)
		if err != nil {
			return err
		}
		result.Success = true
		result.AlreadyProcessed = !transitioned
		if transitioned {
			settled, err = tx.Payments().GetByID(ctx, payment.ID)
			return err
		}
		return nil
	})
	if errors.Is(err, domain.ErrAlreadyPaid) {
		// the provider captured money we cannot apply; it needs a manual refund
		log.Event("webhook.payable_already_paid",
			zap.String("order_ref", orderRef),
			zap.String("payment_id", result.PaymentID),
			zap.String("provider_payment_ref", providerPaymentRef),
		)
		return &WebhookResult{PaymentID: result.PaymentID}, nil
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	switch {
	case !result.Success:
		log.Event("webhook.unknown_order", zap.String("order_ref", orderRef))
	case result.AlreadyProcessed:
		log.Event("webhook.duplicate", zap.String("order_ref", orderRef), zap.String("payment_id", result.PaymentID))
	default:
		s.afterSettle(ctx, settled, "webhook")
	}
	return &result, nil
}

// HandleWebhook verifies a raw delivery with the shared-secret verifier
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	return s.ProcessWebhook(ctx, s.verifier, payload, signature)
}

// ProcessWebhook verifies payload with verifier before acting on it. Events
// other than payment.captured, and verified deliveries that cannot be decoded,
// are acknowledged without any change.
func (s *PaymentService) ProcessWebhook(ctx context.Context, verifier gateway.WebhookVerifier, payload []byte, signature string) (*WebhookResult, error) {
	log := logger.FromContext(ctx)

	if verifier == nil {
		return nil, domain.ErrInvalidSignature
	}
	event, err := verifier.ParseEvent(payload, signature)
	if errors.Is(err, domain.ErrInvalidWebhookPayload) {
		// signed by the provider, so retrying the same bytes will not help
		metrics.Inc(ctx, metrics.WebhooksReceived, attribute.String("outcome", "malformed"))
		log.Warn("webhook payload not understood", zap.Error(err), zap.Int("bytes", len(payload)))
		return &WebhookResult{Ignored: true}, nil
	}
	if err != nil {
		metrics.Inc(ctx, metrics.WebhooksReceived, attribute.String("outcome", "rejected"))
		log.Warn("webhook rejected", zap.Error(err))
		return nil, err
	}

	if event.Type != gateway.EventPaymentCaptured {
		metrics.Inc(ctx, metrics.WebhooksReceived, attribute.String("outcome", "ignored"))
		log.Event("webhook.ignored", zap.String("type", event.Type))
		return &WebhookResult{Ignored: true}, nil
	}

	result, err := s.ConfirmByWebhook(ctx, event.OrderRef, event.ProviderPaymentRef)
	if err != nil {
		return nil, err
	}
	outcome := "processed"
	switch {
	case !result.Success && result.PaymentID != "":
		outcome = "already_paid"
	case !result.Success:
		outcome = "unknown_order"
	case result.AlreadyProcessed:
		outcome = "duplicate"
	}
	metrics.Inc(ctx, metrics.WebhooksReceived, attribute.String("outcome", outcome))
	return result, nil
}

// GetPayment returns a payment visible to its payer, its payee, or an internal actor
func (s *PaymentService) GetPayment(ctx context.Context, actor Actor, paymentID string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		p, err := tx.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if !actor.Internal && p.PayerID != actor.UserID && p.PayeeID != actor.UserID {
			return domain.ErrNotPayer
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// settle is the check-and-set from pending to success. It reports false when
// another transaction got there first, and fails with ErrAlreadyPaid when a
// different payment for the same payable has already succeeded. A booking-flavored payment confirms
// its booking; a wedding-flavored one confirms the wedding's pending booking
// if there is one.
func (s *PaymentService) settle(ctx context.Context, tx repository.Tx, payment *domain.Payment, providerPaymentRef string) (bool, error) {
	now := s.clock.Now()
	ok, err := tx.Payments().MarkSucceeded(ctx, payment.ID, providerPaymentRef, now)
	if err != nil || !ok {
		return false, err
	}

	bookingID := ""
	switch payment.Payable.Kind {
	case domain.PayableKindBooking:
		bookingID = payment.Payable.ID
	case domain.PayableKindWedding:
		active, err := tx.Bookings().GetActiveByWedding(ctx, payment.Payable.ID)
		if err != nil && !errors.Is(err, domain.ErrBookingNotFound) {
			return false, err
		}
		if active != nil {
			bookingID = active.ID
		}
	}
	if bookingID == "" {
		return true, nil
	}

	confirmed, err := tx.Bookings().Confirm(ctx, bookingID, now)
	if err != nil {
		return false, err
	}
	if !confirmed {
		logger.FromContext(ctx).Warn("booking not pending at payment confirmation",
			zap.String("booking_id", bookingID), zap.String("payment_id", payment.ID))
	} else {
		metrics.Inc(ctx, metrics.BookingsConfirmed)
	}
	return true, nil
}

// afterSettle fires notification and invoice generation once per transition
func (s *PaymentService) afterSettle(ctx context.Context, payment *domain.Payment, via string) {
	metrics.Inc(ctx, metrics.PaymentsConfirmed, attribute.String("via", via))
	logger.FromContext(ctx).Event("payment.confirmed",
		zap.String("payment_id", payment.ID),
		zap.String("payable", payment.Payable.String()),
		zap.String("via", via),
	)

	if s.invoices != nil {
		s.effects.Go(ctx, "invoice.generate", func(ctx context.Context) error {
			_, err := s.invoices.Generate(ctx, payment.Payable, payment.ID)
			return err
		})
	}
	if s.notifier != nil {
		payload := map[string]any{
			"payment_id":   payment.ID,
			"payable_kind": string(payment.Payable.Kind),
			"payable_id":   payment.Payable.ID,
			"amount":       payment.Amount,
			"currency":     payment.Currency,
		}
		recipients := []string{payment.PayerID}
		if payment.PayeeID != "" {
			recipients = append(recipients, payment.PayeeID)
		}
		for _, recipient := range recipients {
			s.effects.Go(ctx, "notify.payment_confirmed", func(ctx context.Context) error {
				return s.notifier.Send(ctx, NotificationPaymentConfirmed, recipient, payload)
			})
		}
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
