package domain

import "errors"

// Domain errors
var (
	// Lookup errors
	ErrWeddingNotFound = errors.New("wedding not found")
	ErrVenueNotFound   = errors.New("venue not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrRefundNotFound  = errors.New("refund not found")
	ErrInvoiceNotFound = errors.New("invoice not found")

	// Authorization errors
	ErrNotWeddingOwner = errors.New("wedding does not belong to this client")
	ErrNotVenueOwner   = errors.New("venue does not belong to this vendor")
	ErrNotPayer        = errors.New("payment does not belong to this payer")

	// Availability and booking conflicts
	ErrVenueUnavailable     = errors.New("venue not available on this date")
	ErrDateAlreadyBlocked   = errors.New("date range overlaps an existing block")
	ErrWeddingAlreadyBooked = errors.New("wedding already has a booking")
	ErrConcurrentUpdate     = errors.New("concurrent update, please retry")
	ErrAlreadyPaid          = errors.New("booking is already paid")
	ErrRefundAlreadyExists  = errors.New("refund already exists for this booking")
	ErrPaymentAlreadyExists = errors.New("payment already exists for this order")
	ErrPaymentInProgress    = errors.New("another payment is already pending for this booking")

	// Invalid operations
	ErrBookingNotCancellable = errors.New("only confirmed bookings can be cancelled")
	ErrBookingCancelled      = errors.New("booking is cancelled")
	ErrPaymentRequired       = errors.New("no successful payment found for booking")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInvalidPayableRef     = errors.New("exactly one of wedding_id or booking_id is required")
	ErrInvalidDateRange      = errors.New("start date must not be after end date")
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")
	ErrPaymentRefRequired    = errors.New("provider_payment_ref is required for live payments")
	ErrPaymentNotSettled     = errors.New("payment has not succeeded")
	ErrMalformedID           = errors.New("malformed id")

	// Webhook authentication
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWeddingNotFound) ||
		errors.Is(err, ErrVenueNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrRefundNotFound) ||
		errors.Is(err, ErrInvoiceNotFound)
}

// IsForbiddenError checks if the error is an ownership failure
func IsForbiddenError(err error) bool {
	return errors.Is(err, ErrNotWeddingOwner) ||
		errors.Is(err, ErrNotVenueOwner) ||
		errors.Is(err, ErrNotPayer)
}

// IsConflictError checks if the error is a concurrency invariant violation
func IsConflictError(err error) bool {
	return errors.Is(err, ErrVenueUnavailable) ||
		errors.Is(err, ErrDateAlreadyBlocked) ||
		errors.Is(err, ErrWeddingAlreadyBooked) ||
		errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrRefundAlreadyExists) ||
		errors.Is(err, ErrPaymentAlreadyExists) ||
		errors.Is(err, ErrPaymentInProgress)
}

// IsBadRequestError checks if the error is a semantically invalid operation
func IsBadRequestError(err error) bool {
	return errors.Is(err, ErrBookingNotCancellable) ||
		errors.Is(err, ErrBookingCancelled) ||
		errors.Is(err, ErrPaymentRequired) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPayableRef) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidWebhookPayload) ||
		errors.Is(err, ErrPaymentRefRequired) ||
		errors.Is(err, ErrPaymentNotSettled) ||
		errors.Is(err, ErrMalformedID)
}

// IsUnauthorizedError checks if the error is a webhook authentication failure
func IsUnauthorizedError(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}
