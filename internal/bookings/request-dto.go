package bookings

// CreateBookingRequest is the payload for POST /bookings
type CreateBookingRequest struct {
	// ListingID is the listing the user wants to hold
	ListingID string `json:"listing_id" binding:"required,uuid"`

	// Gateway optionally picks the payment gateway; defaults from config
	Gateway string `json:"gateway" binding:"omitempty,oneof=razorpay stripe"`

	// IdempotencyKey makes the create safe to retry. Optional; also
	// accepted via the Idempotency-Key header, which wins when both are set.
	IdempotencyKey string `json:"idempotency_key" binding:"omitempty,max=255"`
}
