package bookings

import "testing"

func TestTransitionTable(t *testing.T) {
	allStates := []State{
		StatePending, StateAwaitingGateway, StateConfirmed,
		StateFailed, StateExpired, StateCancelled,
	}

	allowed := map[State]map[State]bool{
		StatePending: {
			StateAwaitingGateway: true,
			StateFailed:          true,
			StateExpired:         true,
			StateCancelled:       true,
		},
		StateAwaitingGateway: {
			StateConfirmed: true,
			StateFailed:    true,
			StateExpired:   true,
		},
	}

	for _, from := range allStates {
		for _, to := range allStates {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	terminals := []State{StateConfirmed, StateFailed, StateExpired, StateCancelled}
	allStates := []State{
		StatePending, StateAwaitingGateway, StateConfirmed,
		StateFailed, StateExpired, StateCancelled,
	}

	for _, term := range terminals {
		if !term.IsTerminal() {
			t.Errorf("%s should be terminal", term)
		}
		for _, to := range allStates {
			if term.CanTransitionTo(to) {
				t.Errorf("terminal state %s must not transition to %s", term, to)
			}
		}
	}

	for _, s := range []State{StatePending, StateAwaitingGateway} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestStateValidity(t *testing.T) {
	for _, s := range []State{
		StatePending, StateAwaitingGateway, StateConfirmed,
		StateFailed, StateExpired, StateCancelled,
	} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}

	if State("REFUNDED").IsValid() {
		t.Error("unknown state should not be valid")
	}
	if State("").IsValid() {
		t.Error("empty state should not be valid")
	}
}

func TestCancelOnlyFromPending(t *testing.T) {
	if !StatePending.CanTransitionTo(StateCancelled) {
		t.Error("PENDING must allow cancellation")
	}
	if StateAwaitingGateway.CanTransitionTo(StateCancelled) {
		t.Error("AWAITING_GATEWAY must not allow cancellation while money is in flight")
	}
}
