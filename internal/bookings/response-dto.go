package bookings

import "time"

// BookingResponse is the public view of a booking
type BookingResponse struct {
	ID          string     `json:"id"`
	ListingID   string     `json:"listing_id"`
	ListingType string     `json:"listing_type"`
	FeeAmount   int64      `json:"fee_amount"`
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	TerminalAt  *time.Time `json:"terminal_at,omitempty"`
}

// PaymentInstructions is what the client needs to open checkout. For
// in-page checkout the order ref feeds the gateway's JS SDK; for hosted
// checkout the session ref is a redirect URL.
type PaymentInstructions struct {
	Gateway            string `json:"gateway"`
	GatewayOrderRef    string `json:"gateway_order_ref"`
	CheckoutSessionRef string `json:"checkout_session_ref,omitempty"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency"`
}

// CreateBookingResponse is the payload returned by POST /bookings
type CreateBookingResponse struct {
	Booking  BookingResponse      `json:"booking"`
	Payment  *PaymentInstructions `json:"payment,omitempty"`
	Replayed bool                 `json:"replayed,omitempty"`
}

// toBookingResponse maps the ledger record onto the public view
func toBookingResponse(b *Booking) BookingResponse {
	return BookingResponse{
		ID:          b.ID.String(),
		ListingID:   b.ListingID.String(),
		ListingType: b.ListingType.String(),
		FeeAmount:   b.FeeAmount,
		State:       b.State.String(),
		CreatedAt:   b.CreatedAt,
		TerminalAt:  b.TerminalAt,
	}
}

// toCreateResponse maps a create result onto the response payload
func toCreateResponse(result *CreateResult, currency string) CreateBookingResponse {
	resp := CreateBookingResponse{
		Booking:  toBookingResponse(result.Booking),
		Replayed: result.Replayed,
	}
	if result.Order != nil {
		resp.Payment = &PaymentInstructions{
			Gateway:            result.Order.Gateway,
			GatewayOrderRef:    result.Order.GatewayOrderRef,
			CheckoutSessionRef: result.CheckoutSessionRef,
			Amount:             result.Order.Amount,
			Currency:           currency,
		}
	}
	return resp
}
