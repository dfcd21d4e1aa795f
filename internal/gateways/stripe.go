package gateways

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const stripeName = "stripe"

// StripeGateway implements the redirect-session protocol shape: the client
// is sent to a hosted checkout page and comes back via a redirect URL. The
// redirect return is UI-only and never treated as payment confirmation;
// confirmation arrives through the signed server-to-server webhook or the
// reconciliation sweep's poll.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewStripeGateway creates a Stripe-backed gateway adapter
func NewStripeGateway(secretKey, webhookSecret, successURL, cancelURL string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{
		api:           api,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

// Name returns the registry name of this gateway
func (g *StripeGateway) Name() string {
	return stripeName
}

// CreateOrder opens a Checkout Session for the booking fee. Stripe amounts
// are in the currency's smallest unit (paise for INR).
func (g *StripeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = "inr"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(req.BookingID.String()),
		CustomerEmail:     stripe.String(req.CustomerEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(req.Amount * 100),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Rently booking fee"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("booking_id", req.BookingID.String())
	params.AddMetadata("listing_id", req.ListingID.String())

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session create failed: %w", err)
	}

	return &OrderResult{
		GatewayOrderRef:    session.ID,
		CheckoutSessionRef: session.URL,
	}, nil
}

// VerifyCallback validates the webhook signature and maps the event to an
// outcome. Unhandled event types verify but report pending, which the engine
// ignores.
func (g *StripeGateway) VerifyCallback(payload []byte, signature string) (*CallbackResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: malformed event object", ErrInvalidSignature)
	}

	result := &CallbackResult{
		GatewayOrderRef: session.ID,
		BookingID:       session.ClientReferenceID,
		PaymentRef:      session.ID,
		Outcome:         OutcomePending,
	}
	if session.PaymentIntent != nil {
		result.PaymentRef = session.PaymentIntent.ID
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			result.Outcome = OutcomeSuccess
		}
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		result.Outcome = OutcomeFailure
	}

	return result, nil
}

// PollStatus fetches the session and maps payment status
func (g *StripeGateway) PollStatus(ctx context.Context, gatewayOrderRef string) (Outcome, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := g.api.CheckoutSessions.Get(gatewayOrderRef, params)
	if err != nil {
		return OutcomePending, fmt.Errorf("stripe checkout session fetch failed: %w", err)
	}

	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		return OutcomeSuccess, nil
	}
	if session.Status == stripe.CheckoutSessionStatusExpired {
		return OutcomeFailure, nil
	}
	return OutcomePending, nil
}
