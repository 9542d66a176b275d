package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/dto"
	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/response"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookings      *service.BookingService
	cancellations *service.CancellationService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *service.BookingService, cancellations *service.CancellationService) *BookingHandler {
	return &BookingHandler{bookings: bookings, cancellations: cancellations}
}

// CreateBooking handles POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	a, ok := actor(c)
	if !ok {
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "wedding_id and venue_id must be valid ids")
		return
	}
	span.SetAttributes(attribute.String("wedding_id", req.WeddingID), attribute.String("venue_id", req.VenueID))

	booking, err := h.bookings.BookVenue(ctx, a.UserID, req.WeddingID, req.VenueID)
	if err != nil {
		telemetry.RecordError(span, err)
		respondError(c, err)
		return
	}

	response.Created(c, dto.BookingFromDomain(booking))
}

// GetBooking handles GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	id, ok := pathID(c, domain.ErrBookingNotFound)
	if !ok {
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, dto.BookingFromDomain(booking))
}

// CancelBooking handles POST /bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	a, ok := actor(c)
	if !ok {
		return
	}

	id, ok := pathID(c, domain.ErrBookingNotFound)
	if !ok {
		return
	}

	// the body is optional
	var req dto.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}

	result, err := h.cancellations.CancelBooking(ctx, a.UserID, id, req.Reason)
	if err != nil {
		telemetry.RecordError(span, err)
		respondError(c, err)
		return
	}

	response.OK(c, result)
}
