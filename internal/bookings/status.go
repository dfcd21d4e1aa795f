package bookings

// State is the booking lifecycle state
type State string

const (
	// StatePending: record created, reservation held, no gateway order yet
	StatePending State = "PENDING"
	// StateAwaitingGateway: gateway order open, waiting for a resolution
	StateAwaitingGateway State = "AWAITING_GATEWAY"
	// StateConfirmed: payment succeeded. Terminal.
	StateConfirmed State = "CONFIRMED"
	// StateFailed: payment failed or order creation gave up. Terminal.
	StateFailed State = "FAILED"
	// StateExpired: the reservation window lapsed without resolution. Terminal.
	StateExpired State = "EXPIRED"
	// StateCancelled: the user cancelled before a gateway order existed. Terminal.
	StateCancelled State = "CANCELLED"
)

// validTransitions is the full transition table. Absence means forbidden;
// terminal states have no outgoing edges, ever.
var validTransitions = map[State][]State{
	StatePending:         {StateAwaitingGateway, StateFailed, StateExpired, StateCancelled},
	StateAwaitingGateway: {StateConfirmed, StateFailed, StateExpired},
	StateConfirmed:       {},
	StateFailed:          {},
	StateExpired:         {},
	StateCancelled:       {},
}

// IsValid checks if the state is a recognized lifecycle state
func (s State) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal reports whether the state admits no further transitions
func (s State) IsTerminal() bool {
	next, ok := validTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo checks whether the edge s -> target is in the table
func (s State) CanTransitionTo(target State) bool {
	for _, next := range validTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// PaymentOrderStatus tracks a gateway order alongside its booking
type PaymentOrderStatus string

const (
	// OrderCreated: order opened at the gateway, not yet handed to the client
	OrderCreated PaymentOrderStatus = "CREATED"
	// OrderActive: the booking moved to AWAITING_GATEWAY against this order
	OrderActive PaymentOrderStatus = "ACTIVE"
	// OrderSucceeded: a verified success resolution arrived for this order
	OrderSucceeded PaymentOrderStatus = "SUCCEEDED"
	// OrderFailed: a verified failure resolution arrived, or the order lapsed
	OrderFailed PaymentOrderStatus = "FAILED"
)

// IsValid checks if the order status is recognized
func (s PaymentOrderStatus) IsValid() bool {
	switch s {
	case OrderCreated, OrderActive, OrderSucceeded, OrderFailed:
		return true
	}
	return false
}

// String returns the string representation of PaymentOrderStatus
func (s PaymentOrderStatus) String() string {
	return string(s)
}
