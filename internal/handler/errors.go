package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/middleware"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/response"
	"go.uber.org/zap"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrVenueUnavailable, "VENUE_UNAVAILABLE"},
	{domain.ErrDateAlreadyBlocked, "DATE_ALREADY_BLOCKED"},
	{domain.ErrWeddingAlreadyBooked, "WEDDING_ALREADY_BOOKED"},
	{domain.ErrAlreadyPaid, "ALREADY_PAID"},
	{domain.ErrBookingNotCancellable, "BOOKING_NOT_CANCELLABLE"},
	{domain.ErrPaymentRequired, "PAYMENT_REQUIRED"},
	{domain.ErrInvalidSignature, "INVALID_SIGNATURE"},
}

// respondError maps domain errors to HTTP statuses. Anything unrecognized is
// logged and reported as a generic 500 without details.
func respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, ""
	switch {
	case domain.IsUnauthorizedError(err):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case domain.IsNotFoundError(err):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case domain.IsForbiddenError(err):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case domain.IsConflictError(err):
		status, code = http.StatusConflict, "CONFLICT"
	case domain.IsBadRequestError(err):
		status, code = http.StatusBadRequest, "BAD_REQUEST"
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logger.FromContext(c.Request.Context()).Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.InternalError(c)
		return
	}

	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			code = ec.code
			break
		}
	}
	response.Error(c, status, code, err.Error())
}

// pathID returns the :id parameter. An id that is not a canonical uuid cannot
// name a row, so it is answered with notFound before reaching storage.
func pathID(c *gin.Context, notFound error) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		respondError(c, notFound)
		return "", false
	}
	return id, true
}

// actor builds the service actor from the authenticated request
func actor(c *gin.Context) (service.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Internal: middleware.IsInternal(c)}, true
}
