package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/dto"
	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/response"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/telemetry"
)

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// InitiatePayment handles POST /payments/initiate
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.initiate")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	a, ok := actor(c)
	if !ok {
		return
	}

	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "amount must be greater than zero and ids must be valid")
		return
	}
	payable, err := req.Payable()
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.payments.Initiate(ctx, a, &service.InitiateRequest{
		Payable: payable,
		Amount:  req.Amount,
		PayeeID: req.PayeeID,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		respondError(c, err)
		return
	}

	response.Created(c, result)
}

// ConfirmPayment handles POST /payments/:id/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.confirm")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	a, ok := actor(c)
	if !ok {
		return
	}

	id, ok := pathID(c, domain.ErrPaymentNotFound)
	if !ok {
		return
	}

	var req dto.ConfirmPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}

	result, err := h.payments.Confirm(ctx, a, id, req.ProviderPaymentRef)
	if err != nil {
		telemetry.RecordError(span, err)
		respondError(c, err)
		return
	}

	response.OK(c, &dto.ConfirmPaymentResponse{
		Payment:          dto.PaymentFromDomain(result.Payment),
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	id, ok := pathID(c, domain.ErrPaymentNotFound)
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, dto.PaymentFromDomain(payment))
}
