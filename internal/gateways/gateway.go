package gateways

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidSignature is returned by VerifyCallback when a payload fails
// signature verification. Callers must never mutate booking state on it.
var ErrInvalidSignature = errors.New("callback signature verification failed")

// ErrUnknownGateway is returned by the registry for an unrecognized name
var ErrUnknownGateway = errors.New("unknown payment gateway")

// Outcome is the result a gateway reports for a payment order
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomePending Outcome = "PENDING"
)

// OrderRequest carries everything a gateway needs to open a payment order
// for a booking. Amount is the frozen booking fee in rupees.
type OrderRequest struct {
	BookingID     uuid.UUID
	ListingID     uuid.UUID
	Amount        int64
	Currency      string
	CustomerEmail string
	CustomerPhone string
}

// OrderResult is the provider-side order reference plus whatever the client
// needs to open checkout (a key/order pair for in-page checkout, a hosted
// URL for redirect checkout).
type OrderResult struct {
	GatewayOrderRef    string
	CheckoutSessionRef string
}

// CallbackResult is the verified content of a gateway callback. BookingID is
// the id the payload claims; the engine cross-checks it against the booking
// the order actually belongs to before transitioning anything.
type CallbackResult struct {
	GatewayOrderRef string
	BookingID       string
	PaymentRef      string
	Outcome         Outcome
}

// Gateway abstracts one payment provider. The reconciliation engine is
// written entirely against this interface and never branches on gateway
// identity beyond picking an instance from the registry.
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	VerifyCallback(payload []byte, signature string) (*CallbackResult, error)
	PollStatus(ctx context.Context, gatewayOrderRef string) (Outcome, error)
}

// Registry holds the configured gateway instances by name
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry creates a registry from the given gateways
func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gws))}
	for _, gw := range gws {
		r.gateways[gw.Name()] = gw
	}
	return r
}

// Get returns the gateway registered under name
func (r *Registry) Get(name string) (Gateway, error) {
	gw, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return gw, nil
}

// Names returns the registered gateway names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}
