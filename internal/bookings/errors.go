package bookings

import "errors"

// Sentinel errors for the booking engine. Controllers map these onto HTTP
// status codes; services wrap them with context via fmt.Errorf and %w.
var (
	// ErrListingUnavailable means the listing does not exist, is inactive,
	// or a live reservation for it is held by another booking.
	ErrListingUnavailable = errors.New("listing is not available for booking")

	// ErrContactRequired means the requesting user has no phone number on
	// file, which the gateways require before opening a payment order.
	ErrContactRequired = errors.New("a contact phone number is required before booking")

	// ErrGatewayUnavailable means the payment gateway could not open an
	// order after the configured retries.
	ErrGatewayUnavailable = errors.New("payment gateway is unavailable")

	// ErrConflict means a state transition lost a compare-and-set race or
	// targeted a booking already in a terminal state.
	ErrConflict = errors.New("booking state conflict")

	// ErrNotFound means the booking does not exist
	ErrNotFound = errors.New("booking not found")

	// ErrCancelNotAllowed means the booking has progressed past the point
	// where user cancellation is permitted.
	ErrCancelNotAllowed = errors.New("booking can no longer be cancelled")
)
