package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

const razorpayName = "razorpay"

// RazorpayGateway implements the handler-callback protocol shape: the client
// SDK runs an in-page checkout and invokes a success/failure handler whose
// payload must be verified server-side with an HMAC over order id and
// payment id. The handler callback is the confirmation path; polling exists
// only for the reconciliation sweep.
type RazorpayGateway struct {
	client    *razorpay.Client
	keySecret string
}

// NewRazorpayGateway creates a Razorpay-backed gateway adapter
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	// Outbound order calls must not hang a booking request
	client.SetTimeout(10)
	return &RazorpayGateway{
		client:    client,
		keySecret: keySecret,
	}
}

// Name returns the registry name of this gateway
func (g *RazorpayGateway) Name() string {
	return razorpayName
}

// razorpayCallback is the payload the checkout handler posts back to us
type razorpayCallback struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	BookingID string `json:"booking_id"`
	ErrorCode string `json:"error_code,omitempty"`
}

// CreateOrder opens a Razorpay order for the booking fee. Razorpay amounts
// are in paise.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	data := map[string]interface{}{
		"amount":   req.Amount * 100,
		"currency": currency,
		"receipt":  req.BookingID.String(),
		"notes": map[string]interface{}{
			"booking_id": req.BookingID.String(),
			"listing_id": req.ListingID.String(),
		},
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create failed: %w", err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return nil, fmt.Errorf("razorpay order create returned no order id")
	}

	// The in-page checkout opens against the raw order id
	return &OrderResult{
		GatewayOrderRef:    orderID,
		CheckoutSessionRef: orderID,
	}, nil
}

// VerifyCallback checks the handler payload against the HMAC-SHA256 of
// "<order_id>|<payment_id>" keyed with the API secret. Anything that does
// not verify is rejected wholesale; the caller must not inspect the payload
// further.
func (g *RazorpayGateway) VerifyCallback(payload []byte, signature string) (*CallbackResult, error) {
	var cb razorpayCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("%w: malformed payload", ErrInvalidSignature)
	}
	if cb.OrderID == "" || cb.PaymentID == "" || signature == "" {
		return nil, fmt.Errorf("%w: missing order, payment or signature", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(cb.OrderID + "|" + cb.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	outcome := OutcomeSuccess
	if cb.ErrorCode != "" {
		outcome = OutcomeFailure
	}

	return &CallbackResult{
		GatewayOrderRef: cb.OrderID,
		BookingID:       cb.BookingID,
		PaymentRef:      cb.PaymentID,
		Outcome:         outcome,
	}, nil
}

// PollStatus fetches the order and maps its status. Razorpay reports
// created/attempted/paid; only paid is conclusive, everything else stays
// pending until the reservation TTL expires the booking.
func (g *RazorpayGateway) PollStatus(ctx context.Context, gatewayOrderRef string) (Outcome, error) {
	body, err := g.client.Order.Fetch(gatewayOrderRef, nil, nil)
	if err != nil {
		return OutcomePending, fmt.Errorf("razorpay order fetch failed: %w", err)
	}

	status, _ := body["status"].(string)
	if status == "paid" {
		return OutcomeSuccess, nil
	}
	return OutcomePending, nil
}
