package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rently/internal/fees"
	"rently/internal/gateways"
	"rently/internal/listings"
	"rently/internal/notifications"
	"rently/internal/reservations"
	"rently/internal/users"
	"rently/pkg/logger"
)

// ServiceConfig carries the tunables of the reconciliation engine, frozen
// from the shared config at boot.
type ServiceConfig struct {
	DefaultGateway    string
	Currency          string
	ReservationTTL    time.Duration
	PollThreshold     time.Duration
	OrderRetries      int
	OrderRetryBackoff time.Duration
	IdempotencyTTL    time.Duration
	SweepBatchSize    int
}

// CreateResult is what a successful (or replayed) booking creation hands
// back to the controller: the ledger record, the gateway order, and whatever
// the client needs to open checkout.
type CreateResult struct {
	Booking            *Booking
	Order              *PaymentOrder
	CheckoutSessionRef string
	Replayed           bool
}

// Service is the booking reconciliation engine. It owns the full lifecycle:
// creation with an exclusive listing hold, gateway order management, verified
// callback resolution, and the background sweep.
type Service interface {
	CreateBooking(ctx context.Context, userID, listingID uuid.UUID, gatewayName, idempotencyKey string) (*CreateResult, error)
	HandleCallback(ctx context.Context, gatewayName string, payload []byte, signature string) error
	CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListUserBookings(ctx context.Context, userID uuid.UUID) ([]Booking, error)
	SweepOnce(ctx context.Context, now time.Time)
}

type service struct {
	repo     Repository
	store    reservations.Store
	registry *gateways.Registry
	listings listings.Service
	users    users.Service
	emitter  notifications.Emitter
	policy   fees.Policy
	cfg      ServiceConfig
	logger   *logger.Logger
}

// NewService creates the reconciliation engine
func NewService(
	repo Repository,
	store reservations.Store,
	registry *gateways.Registry,
	listingService listings.Service,
	userService users.Service,
	emitter notifications.Emitter,
	policy fees.Policy,
	cfg ServiceConfig,
	log *logger.Logger,
) Service {
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 100
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &service{
		repo:     repo,
		store:    store,
		registry: registry,
		listings: listingService,
		users:    userService,
		emitter:  emitter,
		policy:   policy,
		cfg:      cfg,
		logger:   log,
	}
}

// CreateBooking runs the creation flow: idempotency check, contact check,
// listing snapshot, fee freeze, exclusive hold, ledger insert, gateway order
// with bounded retry, and activation. Any failure after the hold is acquired
// rolls the booking to FAILED and releases the hold.
func (s *service) CreateBooking(ctx context.Context, userID, listingID uuid.UUID, gatewayName, idempotencyKey string) (*CreateResult, error) {
	if idempotencyKey != "" {
		existing, err := s.repo.FindIdempotentBooking(ctx, idempotencyKey, userID)
		if err == nil {
			s.logger.LogDuplicateResolution(ctx, existing.ID.String(), "idempotency_replay")
			return s.replayResult(ctx, existing)
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	contact, err := s.users.GetContact(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrContactRequired
		}
		return nil, err
	}
	if contact.Phone == "" {
		return nil, ErrContactRequired
	}

	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, listings.ErrNotFound) {
			return nil, ErrListingUnavailable
		}
		return nil, err
	}

	if gatewayName == "" {
		gatewayName = s.cfg.DefaultGateway
	}
	gw, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}

	fee := s.policy.Compute(listing.RentAmount)
	bookingID := uuid.New()

	if _, err := s.store.Acquire(ctx, listingID, bookingID, s.cfg.ReservationTTL); err != nil {
		if errors.Is(err, reservations.ErrHeld) {
			return nil, ErrListingUnavailable
		}
		return nil, fmt.Errorf("failed to acquire listing hold: %w", err)
	}

	now := time.Now().UTC()
	booking := &Booking{
		ID:          bookingID,
		ListingID:   listingID,
		UserID:      userID,
		ListingType: listing.Type,
		FeeAmount:   fee,
		State:       StatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var key *IdempotencyKey
	if idempotencyKey != "" {
		key = &IdempotencyKey{
			Key:       idempotencyKey,
			UserID:    userID,
			ListingID: listingID,
			BookingID: bookingID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.IdempotencyTTL),
		}
	}

	if err := s.repo.CreateBooking(ctx, booking, key); err != nil {
		s.releaseHold(ctx, listingID, bookingID)
		if errors.Is(err, ErrConflict) && idempotencyKey != "" {
			// Lost the key race to a concurrent request with the same key;
			// hand back the winner's booking.
			existing, ferr := s.repo.FindIdempotentBooking(ctx, idempotencyKey, userID)
			if ferr == nil {
				s.logger.LogDuplicateResolution(ctx, existing.ID.String(), "idempotency_race")
				return s.replayResult(ctx, existing)
			}
		}
		return nil, err
	}
	s.logger.LogBookingCreated(ctx, bookingID.String(), listingID.String(), userID.String())

	orderResult, attempts, err := s.createOrderWithRetry(ctx, gw, gateways.OrderRequest{
		BookingID:     bookingID,
		ListingID:     listingID,
		Amount:        fee,
		Currency:      s.cfg.Currency,
		CustomerEmail: contact.Email,
		CustomerPhone: contact.Phone,
	})
	if err != nil {
		s.failPendingBooking(ctx, booking, "order_creation")
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	order := &PaymentOrder{
		ID:              uuid.New(),
		BookingID:       bookingID,
		Gateway:         gw.Name(),
		GatewayOrderRef: orderResult.GatewayOrderRef,
		CheckoutRef:     orderResult.CheckoutSessionRef,
		Amount:          fee,
		Attempt:         attempts,
		Status:          OrderCreated,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	if err := s.repo.CreatePaymentOrder(ctx, order); err != nil {
		s.failPendingBooking(ctx, booking, "order_persist")
		return nil, err
	}

	if err := s.repo.ActivateOrder(ctx, bookingID, order.ID); err != nil {
		// The booking left PENDING while the order was being opened
		// (cancelled or expired underneath us). The order is orphaned;
		// mark it failed and report the conflict.
		if rerr := s.repo.ResolveOrder(ctx, order.ID, OrderFailed, ""); rerr != nil {
			s.logger.ErrorWithContext(ctx, "failed to orphan payment order", rerr,
				map[string]interface{}{"order_id": order.ID.String()})
		}
		return nil, err
	}
	s.logger.LogPaymentOrderCreated(ctx, bookingID.String(), gw.Name(), order.GatewayOrderRef)

	booking.State = StateAwaitingGateway
	booking.PaymentOrderID = &order.ID
	order.Status = OrderActive

	return &CreateResult{
		Booking:            booking,
		Order:              order,
		CheckoutSessionRef: orderResult.CheckoutSessionRef,
	}, nil
}

// createOrderWithRetry opens a gateway order with bounded retries and
// doubling backoff. Returns the result and the number of attempts used.
func (s *service) createOrderWithRetry(ctx context.Context, gw gateways.Gateway, req gateways.OrderRequest) (*gateways.OrderResult, int, error) {
	retries := s.cfg.OrderRetries
	if retries < 1 {
		retries = 1
	}
	backoff := s.cfg.OrderRetryBackoff

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		result, err := gw.CreateOrder(ctx, req)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err
		s.logger.DebugWithContext(ctx, "gateway order attempt failed", map[string]interface{}{
			"booking_id": req.BookingID.String(),
			"gateway":    gw.Name(),
			"attempt":    attempt,
			"error":      err.Error(),
		})

		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, retries, lastErr
}

// failPendingBooking rolls a PENDING booking to FAILED and releases its hold
func (s *service) failPendingBooking(ctx context.Context, booking *Booking, reason string) {
	if err := s.repo.TransitionState(ctx, booking.ID, []State{StatePending}, StateFailed); err != nil {
		if !errors.Is(err, ErrConflict) {
			s.logger.ErrorWithContext(ctx, "failed to fail booking", err,
				map[string]interface{}{"booking_id": booking.ID.String()})
		}
		return
	}
	s.releaseHold(ctx, booking.ListingID, booking.ID)
	s.logger.LogBookingResolved(ctx, booking.ID.String(), StateFailed.String(), reason)
	s.emit(ctx, notifications.EventBookingFailed, booking)
}

// HandleCallback verifies and applies an inbound gateway callback. Signature
// failures propagate so the controller can reject the request; everything
// after verification is absorbed, because the gateway retries on non-200 and
// a benign duplicate must not trigger a retry storm.
func (s *service) HandleCallback(ctx context.Context, gatewayName string, payload []byte, signature string) error {
	gw, err := s.registry.Get(gatewayName)
	if err != nil {
		return err
	}

	result, err := gw.VerifyCallback(payload, signature)
	if err != nil {
		return err
	}

	s.applyResolution(ctx, result, "callback")
	return nil
}

// applyResolution matches a verified gateway resolution to its booking and
// applies the transition. All mismatches are logged and dropped.
func (s *service) applyResolution(ctx context.Context, result *gateways.CallbackResult, source string) {
	order, err := s.repo.GetOrderByGatewayRef(ctx, result.GatewayOrderRef)
	if err != nil {
		s.logger.InfoWithContext(ctx, "resolution for unknown order dropped", map[string]interface{}{
			"gateway_order_ref": result.GatewayOrderRef,
			"source":            source,
		})
		return
	}

	booking, err := s.repo.GetByID(ctx, order.BookingID)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "order without booking", err,
			map[string]interface{}{"order_id": order.ID.String()})
		return
	}

	// A verified payload can still claim the wrong booking (provider replay
	// across orders). The order row is the source of truth; a mismatch is
	// dropped, never applied.
	if result.BookingID != "" && result.BookingID != booking.ID.String() {
		s.logger.InfoWithContext(ctx, "resolution booking mismatch dropped", map[string]interface{}{
			"claimed_booking_id": result.BookingID,
			"actual_booking_id":  booking.ID.String(),
			"source":             source,
		})
		return
	}

	switch result.Outcome {
	case gateways.OutcomeSuccess:
		s.resolve(ctx, booking, order, StateConfirmed, OrderSucceeded, result.PaymentRef, source)
	case gateways.OutcomeFailure:
		s.resolve(ctx, booking, order, StateFailed, OrderFailed, result.PaymentRef, source)
	case gateways.OutcomePending:
		// Not a resolution; the sweep or a later callback will finish it.
	}
}

// resolve applies a terminal payment resolution through the CAS. A lost race
// is inspected: the same terminal state means a duplicate delivery, a
// different one means a late resolution against an already-settled booking.
// Both are absorbed; terminal states never move.
func (s *service) resolve(ctx context.Context, booking *Booking, order *PaymentOrder, to State, orderStatus PaymentOrderStatus, paymentRef, source string) {
	err := s.repo.TransitionState(ctx, booking.ID, []State{StateAwaitingGateway}, to)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			current, gerr := s.repo.GetByID(ctx, booking.ID)
			if gerr == nil && current.State == to {
				s.logger.LogDuplicateResolution(ctx, booking.ID.String(), source)
				return
			}
			state := "unknown"
			if gerr == nil {
				state = current.State.String()
			}
			s.logger.InfoWithContext(ctx, "late resolution against settled booking dropped", map[string]interface{}{
				"booking_id":    booking.ID.String(),
				"settled_state": state,
				"attempted":     to.String(),
				"source":        source,
			})
			return
		}
		s.logger.ErrorWithContext(ctx, "failed to apply resolution", err,
			map[string]interface{}{"booking_id": booking.ID.String()})
		return
	}

	if rerr := s.repo.ResolveOrder(ctx, order.ID, orderStatus, paymentRef); rerr != nil {
		s.logger.ErrorWithContext(ctx, "failed to resolve payment order", rerr,
			map[string]interface{}{"order_id": order.ID.String()})
	}

	// Ledger first, hold second: a racing reader now sees the terminal
	// booking, never a freed listing with an unresolved booking.
	s.releaseHold(ctx, booking.ListingID, booking.ID)
	s.logger.LogBookingResolved(ctx, booking.ID.String(), to.String(), source)

	eventType := notifications.EventBookingFailed
	if to == StateConfirmed {
		eventType = notifications.EventBookingConfirmed
	}
	s.emit(ctx, eventType, booking)
}

// CancelBooking cancels a PENDING booking on behalf of its owner. Once a
// gateway order is open the money path must settle first, so anything past
// PENDING refuses.
func (s *service) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrNotFound
	}

	if err := s.repo.TransitionState(ctx, bookingID, []State{StatePending}, StateCancelled); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrCancelNotAllowed
		}
		return nil, err
	}

	s.releaseHold(ctx, booking.ListingID, booking.ID)
	s.logger.LogBookingResolved(ctx, bookingID.String(), StateCancelled.String(), "user_cancel")
	s.emit(ctx, notifications.EventBookingCancelled, booking)

	booking.State = StateCancelled
	return booking, nil
}

// GetBooking fetches a booking by id. Ownership is enforced by the caller.
func (s *service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

// ListUserBookings returns the user's bookings, newest first
func (s *service) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]Booking, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SweepOnce runs one reconciliation pass: poll stale gateway orders, expire
// lapsed reservations, reap spent idempotency keys. Each phase is
// independent; an error in one is logged and does not stop the others.
func (s *service) SweepOnce(ctx context.Context, now time.Time) {
	s.pollStaleOrders(ctx, now)
	s.expireLapsed(ctx, now)
	s.reapIdempotencyKeys(ctx, now)
}

// pollStaleOrders asks the gateway directly about AWAITING_GATEWAY bookings
// that have gone quiet past the poll threshold. Covers lost callbacks.
func (s *service) pollStaleOrders(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.cfg.PollThreshold)
	stale, err := s.repo.ListAwaitingOlderThan(ctx, cutoff, s.cfg.SweepBatchSize)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "sweep poll listing failed", err, nil)
		return
	}

	for i := range stale {
		booking := &stale[i]
		order, err := s.repo.GetActiveOrder(ctx, booking.ID)
		if err != nil {
			continue
		}
		gw, err := s.registry.Get(order.Gateway)
		if err != nil {
			s.logger.ErrorWithContext(ctx, "active order on unknown gateway", err,
				map[string]interface{}{"order_id": order.ID.String()})
			continue
		}

		outcome, err := gw.PollStatus(ctx, order.GatewayOrderRef)
		if err != nil {
			s.logger.DebugWithContext(ctx, "sweep poll failed", map[string]interface{}{
				"booking_id": booking.ID.String(),
				"gateway":    order.Gateway,
				"error":      err.Error(),
			})
			continue
		}

		switch outcome {
		case gateways.OutcomeSuccess:
			s.resolve(ctx, booking, order, StateConfirmed, OrderSucceeded, "", "sweep_poll")
		case gateways.OutcomeFailure:
			s.resolve(ctx, booking, order, StateFailed, OrderFailed, "", "sweep_poll")
		}
	}
}

// expireLapsed expires bookings whose reservation window has lapsed. The
// reservation store lists without deleting, so the ledger transition always
// lands before the hold is released. A ledger backstop catches bookings
// whose hold record was lost entirely.
func (s *service) expireLapsed(ctx context.Context, now time.Time) {
	lapsed, err := s.store.Expired(ctx, now)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "sweep expiry listing failed", err, nil)
	}
	for _, res := range lapsed {
		booking, err := s.repo.GetByID(ctx, res.BookingID)
		if err != nil {
			// Hold without a ledger row; just drop the hold.
			s.releaseHold(ctx, res.ListingID, res.BookingID)
			continue
		}
		s.expireBooking(ctx, booking)
	}

	// Ledger backstop. Anything non-terminal that is twice the reservation
	// window old has no live hold, whatever happened to the record of it.
	cutoff := now.Add(-2 * s.cfg.ReservationTTL)
	stale, err := s.repo.ListNonTerminalOlderThan(ctx, cutoff, s.cfg.SweepBatchSize)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "sweep backstop listing failed", err, nil)
		return
	}
	for i := range stale {
		s.expireBooking(ctx, &stale[i])
	}
}

// expireBooking moves a booking to EXPIRED, settles its order, and releases
// the hold. Conflicts mean someone else settled it; the hold is released
// only if the booking is in fact terminal.
func (s *service) expireBooking(ctx context.Context, booking *Booking) {
	err := s.repo.TransitionState(ctx, booking.ID,
		[]State{StatePending, StateAwaitingGateway}, StateExpired)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			current, gerr := s.repo.GetByID(ctx, booking.ID)
			if gerr == nil && current.IsTerminal() {
				s.releaseHold(ctx, booking.ListingID, booking.ID)
			}
			return
		}
		s.logger.ErrorWithContext(ctx, "failed to expire booking", err,
			map[string]interface{}{"booking_id": booking.ID.String()})
		return
	}

	if booking.PaymentOrderID != nil {
		if rerr := s.repo.ResolveOrder(ctx, *booking.PaymentOrderID, OrderFailed, ""); rerr != nil {
			s.logger.ErrorWithContext(ctx, "failed to lapse payment order", rerr,
				map[string]interface{}{"order_id": booking.PaymentOrderID.String()})
		}
	}

	s.releaseHold(ctx, booking.ListingID, booking.ID)
	s.logger.LogBookingResolved(ctx, booking.ID.String(), StateExpired.String(), "sweep_expiry")
	s.emit(ctx, notifications.EventBookingExpired, booking)
}

func (s *service) reapIdempotencyKeys(ctx context.Context, now time.Time) {
	reaped, err := s.repo.DeleteExpiredIdempotencyKeys(ctx, now)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "idempotency key reap failed", err, nil)
		return
	}
	if reaped > 0 {
		s.logger.DebugWithContext(ctx, "idempotency keys reaped", map[string]interface{}{
			"count": reaped,
		})
	}
}

// replayResult rebuilds the create response for an idempotent replay
func (s *service) replayResult(ctx context.Context, booking *Booking) (*CreateResult, error) {
	result := &CreateResult{Booking: booking, Replayed: true}
	if booking.PaymentOrderID != nil {
		order, err := s.repo.GetActiveOrder(ctx, booking.ID)
		if err == nil {
			result.Order = order
			result.CheckoutSessionRef = order.CheckoutRef
		}
	}
	return result, nil
}

func (s *service) releaseHold(ctx context.Context, listingID, bookingID uuid.UUID) {
	if err := s.store.Release(ctx, listingID, bookingID); err != nil {
		s.logger.ErrorWithContext(ctx, "failed to release listing hold", err,
			map[string]interface{}{
				"listing_id": listingID.String(),
				"booking_id": bookingID.String(),
			})
	}
}

// emit publishes a lifecycle event. Best effort: the emitter logs failures
// and the engine never lets one block or fail a transition.
func (s *service) emit(ctx context.Context, eventType notifications.EventType, booking *Booking) {
	event := notifications.NewBookingEvent(eventType, booking.ID, booking.ListingID, booking.UserID, booking.FeeAmount)
	event.Data["listing_type"] = booking.ListingType.String()

	if contact, err := s.users.GetContact(ctx, booking.UserID); err == nil {
		event.RecipientEmail = contact.Email
		event.RecipientName = contact.Name
	}

	_ = s.emitter.Emit(ctx, event)
}
