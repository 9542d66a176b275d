package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/dto"
	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/response"
)

// AvailabilityHandler handles venue availability requests
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// BlockDates handles POST /venues/:id/availability
func (h *AvailabilityHandler) BlockDates(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	venueID, ok := pathID(c, domain.ErrVenueNotFound)
	if !ok {
		return
	}

	var req dto.BlockDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "start_date and end_date are required")
		return
	}
	start, end, err := req.Range()
	if err != nil {
		respondError(c, err)
		return
	}

	block, err := h.availability.BlockDates(c.Request.Context(), a, venueID, start, end, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, dto.AvailabilityFromDomain(block))
}

// ListBlocks handles GET /venues/:id/availability?from=YYYY-MM-DD&to=YYYY-MM-DD.
// With ?date=YYYY-MM-DD instead it answers whether that single day is free.
func (h *AvailabilityHandler) ListBlocks(c *gin.Context) {
	venueID, ok := pathID(c, domain.ErrVenueNotFound)
	if !ok {
		return
	}

	if raw, ok := c.GetQuery("date"); ok {
		h.checkDate(c, venueID, raw)
		return
	}

	from, to, err := dto.ParseRangeQuery(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, domain.ErrInvalidDateRange)
		return
	}

	blocks, err := h.availability.ListBlocks(c.Request.Context(), venueID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]*dto.AvailabilityResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, dto.AvailabilityFromDomain(b))
	}
	response.OK(c, gin.H{"venue_id": venueID, "blocks": out})
}

func (h *AvailabilityHandler) checkDate(c *gin.Context, venueID, raw string) {
	date, err := domain.ParseDate(raw)
	if err != nil {
		response.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	available, err := h.availability.IsAvailable(c.Request.Context(), venueID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, gin.H{"venue_id": venueID, "date": date.Format(domain.DateLayout), "available": available})
}
