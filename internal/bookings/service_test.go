package bookings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
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

// ---- fakes ----

type fakeRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking
	orders   map[uuid.UUID]*PaymentOrder
	byRef    map[string]uuid.UUID
	keys     map[string]*IdempotencyKey
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		bookings: make(map[uuid.UUID]*Booking),
		orders:   make(map[uuid.UUID]*PaymentOrder),
		byRef:    make(map[string]uuid.UUID),
		keys:     make(map[string]*IdempotencyKey),
	}
}

func (r *fakeRepo) CreateBooking(ctx context.Context, booking *Booking, key *IdempotencyKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key != nil {
		if _, exists := r.keys[key.Key]; exists {
			return fmt.Errorf("%w: idempotency key already used", ErrConflict)
		}
		cp := *key
		r.keys[key.Key] = &cp
	}
	cp := *booking
	r.bookings[booking.ID] = &cp
	return nil
}

func (r *fakeRepo) FindIdempotentBooking(ctx context.Context, key string, userID uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.keys[key]
	if !ok || record.UserID != userID {
		return nil, ErrNotFound
	}
	booking, ok := r.bookings[record.BookingID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *booking
	return &cp, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *booking
	return &cp, nil
}

func (r *fakeRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeRepo) TransitionState(ctx context.Context, id uuid.UUID, from []State, to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return fmt.Errorf("%w: booking %s missing", ErrConflict, id)
	}
	for _, f := range from {
		if booking.State == f {
			booking.State = to
			booking.UpdatedAt = time.Now().UTC()
			if to.IsTerminal() {
				now := time.Now().UTC()
				booking.TerminalAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("%w: booking %s is in %s", ErrConflict, id, booking.State)
}

func (r *fakeRepo) ActivateOrder(ctx context.Context, bookingID, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[bookingID]
	if !ok || booking.State != StatePending {
		return fmt.Errorf("%w: booking left PENDING", ErrConflict)
	}
	booking.State = StateAwaitingGateway
	booking.PaymentOrderID = &orderID
	booking.UpdatedAt = time.Now().UTC()
	if order, ok := r.orders[orderID]; ok {
		order.Status = OrderActive
	}
	return nil
}

func (r *fakeRepo) CreatePaymentOrder(ctx context.Context, order *PaymentOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.ID] = &cp
	r.byRef[order.GatewayOrderRef] = order.ID
	return nil
}

func (r *fakeRepo) ResolveOrder(ctx context.Context, orderID uuid.UUID, status PaymentOrderStatus, paymentRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	if paymentRef != "" {
		order.PaymentRef = paymentRef
	}
	return nil
}

func (r *fakeRepo) GetOrderByGatewayRef(ctx context.Context, ref string) (*PaymentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byRef[ref]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.orders[id]
	return &cp, nil
}

func (r *fakeRepo) GetActiveOrder(ctx context.Context, bookingID uuid.UUID) (*PaymentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.BookingID == bookingID && order.Status == OrderActive {
			cp := *order
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) ListAwaitingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, b := range r.bookings {
		if b.State == StateAwaitingGateway && b.UpdatedAt.Before(cutoff) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListNonTerminalOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, b := range r.bookings {
		if !b.State.IsTerminal() && b.CreatedAt.Before(cutoff) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteExpiredIdempotencyKeys(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reaped int64
	for k, record := range r.keys {
		if record.ExpiresAt.Before(now) {
			delete(r.keys, k)
			reaped++
		}
	}
	return reaped, nil
}

// touch backdates a booking's timestamps so sweep cutoffs see it
func (r *fakeRepo) touch(id uuid.UUID, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		b.CreatedAt = at
		b.UpdatedAt = at
	}
}

type fakeGateway struct {
	mu           sync.Mutex
	name         string
	createErr    error
	createCalls  int
	verifyResult *gateways.CallbackResult
	verifyErr    error
	pollOutcome  gateways.Outcome
	pollErr      error
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) CreateOrder(ctx context.Context, req gateways.OrderRequest) (*gateways.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	ref := fmt.Sprintf("order_%s", req.BookingID)
	return &gateways.OrderResult{GatewayOrderRef: ref, CheckoutSessionRef: ref}, nil
}

func (g *fakeGateway) VerifyCallback(payload []byte, signature string) (*gateways.CallbackResult, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.verifyResult, nil
}

func (g *fakeGateway) PollStatus(ctx context.Context, ref string) (gateways.Outcome, error) {
	if g.pollErr != nil {
		return gateways.OutcomePending, g.pollErr
	}
	if g.pollOutcome == "" {
		return gateways.OutcomePending, nil
	}
	return g.pollOutcome, nil
}

type fakeListings struct {
	mu   sync.Mutex
	data map[uuid.UUID]*listings.Listing
}

func (f *fakeListings) GetListing(ctx context.Context, id uuid.UUID) (*listings.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.data[id]
	if !ok {
		return nil, listings.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListings) setRent(id uuid.UUID, rent int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[id].RentAmount = rent
}

type fakeUsers struct {
	contacts map[uuid.UUID]*users.Contact
}

func (f *fakeUsers) GetContact(ctx context.Context, id uuid.UUID) (*users.Contact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return c, nil
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []*notifications.BookingEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, event *notifications.BookingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEmitter) Close() error { return nil }

func (f *fakeEmitter) ofType(t notifications.EventType) []*notifications.BookingEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*notifications.BookingEvent
	for _, e := range f.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ---- harness ----

type engineFixture struct {
	service   Service
	repo      *fakeRepo
	store     *reservations.MemoryStore
	gateway   *fakeGateway
	listings  *fakeListings
	users     *fakeUsers
	emitter   *fakeEmitter
	userID    uuid.UUID
	listingID uuid.UUID
	cfg       ServiceConfig
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	userID := uuid.New()
	listingID := uuid.New()

	repo := newFakeRepo()
	store := reservations.NewMemoryStore()
	gw := &fakeGateway{name: "fakepay"}
	listingSvc := &fakeListings{data: map[uuid.UUID]*listings.Listing{
		listingID: {
			ID:         listingID,
			OwnerID:    uuid.New(),
			Type:       listings.TypeRoom,
			RentAmount: 4900,
			Active:     true,
		},
	}}
	userSvc := &fakeUsers{contacts: map[uuid.UUID]*users.Contact{
		userID: {Name: "Asha", Email: "asha@example.com", Phone: "+919800000001"},
	}}
	emitter := &fakeEmitter{}

	cfg := ServiceConfig{
		DefaultGateway:    "fakepay",
		Currency:          "INR",
		ReservationTTL:    10 * time.Minute,
		PollThreshold:     3 * time.Minute,
		OrderRetries:      3,
		OrderRetryBackoff: time.Millisecond,
		IdempotencyTTL:    time.Hour,
		SweepBatchSize:    100,
	}

	service := NewService(repo, store, gateways.NewRegistry(gw),
		listingSvc, userSvc, emitter, fees.NewPolicy(0.02, 10), cfg, logger.GetDefault())

	return &engineFixture{
		service:   service,
		repo:      repo,
		store:     store,
		gateway:   gw,
		listings:  listingSvc,
		users:     userSvc,
		emitter:   emitter,
		userID:    userID,
		listingID: listingID,
		cfg:       cfg,
	}
}

func (f *engineFixture) create(t *testing.T) *CreateResult {
	t.Helper()
	result, err := f.service.CreateBooking(context.Background(), f.userID, f.listingID, "", "")
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	return result
}

func (f *engineFixture) successCallback(result *CreateResult) *gateways.CallbackResult {
	return &gateways.CallbackResult{
		GatewayOrderRef: result.Order.GatewayOrderRef,
		BookingID:       result.Booking.ID.String(),
		PaymentRef:      "pay_001",
		Outcome:         gateways.OutcomeSuccess,
	}
}

// ---- tests ----

func TestCreateBookingHappyPath(t *testing.T) {
	f := newEngineFixture(t)

	result := f.create(t)

	if result.Booking.State != StateAwaitingGateway {
		t.Errorf("state = %s, want %s", result.Booking.State, StateAwaitingGateway)
	}
	// 2% of 4900 floors to 98
	if result.Booking.FeeAmount != 98 {
		t.Errorf("fee = %d, want 98", result.Booking.FeeAmount)
	}
	if result.Order == nil || result.Order.GatewayOrderRef == "" {
		t.Fatal("expected a gateway order")
	}
	if result.Order.Amount != 98 {
		t.Errorf("order amount = %d, want 98", result.Order.Amount)
	}

	// The listing is held against other bookings
	_, err := f.store.Acquire(context.Background(), f.listingID, uuid.New(), time.Minute)
	if !errors.Is(err, reservations.ErrHeld) {
		t.Errorf("expected listing held, got %v", err)
	}
}

func TestCreateBookingFeeFrozenAtCreation(t *testing.T) {
	f := newEngineFixture(t)

	result := f.create(t)

	// A rent change after creation never touches the frozen fee
	f.listings.setRent(f.listingID, 100000)
	stored, err := f.service.GetBooking(context.Background(), result.Booking.ID)
	if err != nil {
		t.Fatalf("GetBooking failed: %v", err)
	}
	if stored.FeeAmount != 98 {
		t.Errorf("fee after rent change = %d, want 98", stored.FeeAmount)
	}
}

func TestCreateBookingIdempotentReplay(t *testing.T) {
	f := newEngineFixture(t)

	first, err := f.service.CreateBooking(context.Background(), f.userID, f.listingID, "", "key-1")
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := f.service.CreateBooking(context.Background(), f.userID, f.listingID, "", "key-1")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	if !second.Replayed {
		t.Error("replay should be flagged")
	}
	if first.Booking.ID != second.Booking.ID {
		t.Errorf("replay returned a different booking: %s vs %s", first.Booking.ID, second.Booking.ID)
	}
	if f.gateway.createCalls != 1 {
		t.Errorf("gateway orders created = %d, want 1", f.gateway.createCalls)
	}
	if n := len(f.repo.bookings); n != 1 {
		t.Errorf("bookings persisted = %d, want 1", n)
	}
}

func TestCreateBookingConflictWhileHeld(t *testing.T) {
	f := newEngineFixture(t)

	f.create(t)

	otherUser := uuid.New()
	f.users.contacts[otherUser] = &users.Contact{Name: "Ravi", Email: "ravi@example.com", Phone: "+919800000002"}

	_, err := f.service.CreateBooking(context.Background(), otherUser, f.listingID, "", "")
	if !errors.Is(err, ErrListingUnavailable) {
		t.Errorf("expected ErrListingUnavailable, got %v", err)
	}
}

func TestCreateBookingContactRequired(t *testing.T) {
	f := newEngineFixture(t)

	noPhone := uuid.New()
	f.users.contacts[noPhone] = &users.Contact{Name: "Meera", Email: "meera@example.com"}

	_, err := f.service.CreateBooking(context.Background(), noPhone, f.listingID, "", "")
	if !errors.Is(err, ErrContactRequired) {
		t.Errorf("expected ErrContactRequired, got %v", err)
	}

	// No hold was taken and nothing was persisted
	if n := len(f.repo.bookings); n != 0 {
		t.Errorf("bookings persisted = %d, want 0", n)
	}
	if _, err := f.store.Acquire(context.Background(), f.listingID, uuid.New(), time.Minute); err != nil {
		t.Errorf("listing should still be free, got %v", err)
	}
}

func TestCreateBookingGatewayDown(t *testing.T) {
	f := newEngineFixture(t)
	f.gateway.createErr = errors.New("connection refused")

	_, err := f.service.CreateBooking(context.Background(), f.userID, f.listingID, "", "")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}

	if f.gateway.createCalls != 3 {
		t.Errorf("gateway attempts = %d, want 3", f.gateway.createCalls)
	}

	// The booking failed and the hold was released
	var booking *Booking
	for _, b := range f.repo.bookings {
		booking = b
	}
	if booking == nil {
		t.Fatal("expected a persisted booking")
	}
	if booking.State != StateFailed {
		t.Errorf("state = %s, want %s", booking.State, StateFailed)
	}
	if _, err := f.store.Acquire(context.Background(), f.listingID, uuid.New(), time.Minute); err != nil {
		t.Errorf("listing should be free after failure, got %v", err)
	}
	if n := len(f.emitter.ofType(notifications.EventBookingFailed)); n != 1 {
		t.Errorf("failed events = %d, want 1", n)
	}
}

func TestCallbackSuccessConfirms(t *testing.T) {
	f := newEngineFixture(t)

	result := f.create(t)
	f.gateway.verifyResult = f.successCallback(result)

	if err := f.service.HandleCallback(context.Background(), "fakepay", []byte(`{}`), "sig"); err != nil {
		t.Fatalf("HandleCallback failed: %v", err)
	}

	booking, _ := f.service.GetBooking(context.Background(), result.Booking.ID)
	if booking.State != StateConfirmed {
		t.Errorf("state = %s, want %s", booking.State, StateConfirmed)
	}

	order, err := f.repo.GetOrderByGatewayRef(context.Background(), result.Order.GatewayOrderRef)
	if err != nil {
		t.Fatalf("order lookup failed: %v", err)
	}
	if order.Status != OrderSucceeded {
		t.Errorf("order status = %s, want %s", order.Status, OrderSucceeded)
	}
	if order.PaymentRef != "pay_001" {
		t.Errorf("payment ref = %q, want pay_001", order.PaymentRef)
	}

	// Hold released, listing bookable again
	if _, err := f.store.Acquire(context.Background(), f.listingID, uuid.New(), time.Minute); err != nil {
		t.Errorf("listing should be free after confirmation, got %v", err)
	}
	if n := len(f.emitter.ofType(notifications.EventBookingConfirmed)); n != 1 {
		t.Errorf("confirmed events = %d, want 1", n)
	}
}

func TestCallbackDuplicateAbsorbed(t *testing.T) {
	f := newEngineFixture(t)

	result := f.create(t)
	f.gateway.verifyResult = f.successCallback(result)

	for i := 0; i < 3; i++ {
		if err := f.service.HandleCallback(context.Background(), "fakepay", []byte(`{}`), "sig"); err != nil {
			t.Fatalf("delivery %d failed: %v", i+1, err)
		}
	}

	booking, _ := f.service.GetBooking(context.Background(), result.Booking.ID)
	if booking.State != StateConfirmed {
		t.Errorf("state = %s, want %s", booking.State, StateConfirmed)
	}
	if n := len(f.emitter.ofType(notifications.EventBookingConfirmed)); n != 1 {
		t.Errorf("confirmed events after duplicates = %d, want 1", n)
	}
}

func TestCallbackInvalidSignatureRejected(t *testing.T) {
	f := newEngineFixture(t)

	result := f.create(t)
	f.gateway.verifyErr = gateways.ErrInvalidSignature

	err := f.service.HandleCallback(context.Background(), "fakepay", []byte(`{"tampered":true}`), "bad")
	if !errors.Is(err, gateways.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	// Booking state untouched
	booking, _ := f.service.GetBooking(context.Background(), result.Booking.ID)
	if booking.State != StateAwaitingGateway {
		t.Errorf("state = %s, want %s", booking.State, StateAwaitingGateway)
	}
}

func TestCallbackUnknownOrderAbsorbed(t *testing.T) {
	f := newEngineFixture(t)

	f.gateway.verifyResult = &gateways.CallbackResult{
		GatewayOrderRef: "order_unknown",
		Outcome:         gateways.OutcomeSuccess,
	}
	if err := f.service.HandleCallback(context.Background(), "fakepay", []byte(`{}`), "sig"); err != nil {
		t.Errorf("unknown order must be absorbed, got %v", err)
	}
}

func TestCallbackBookingMismatchDropped(t *testing.T) {
	f := newEngineFixture(t)

	result := f.create(t)
	cb := f.successCallback(result)
	cb.BookingID = uuid.New().String() // claims a different booking
	f.gateway.verifyResult = cb

	if err := f.service.HandleCallback(context.Background(), "fakepay", []byte(`{}`), "sig"); err != nil {
		t.Fatalf("mismatch must be absorbed, got %v", err)
	}

	booking, _ := f.service.GetBooking(context.Background(), result.Booking.ID)
	if booking.State != StateAwaitingGateway {
		t.Errorf("state = %s, want %s (mismatched resolution must not apply)", booking.State, StateAwaitingGateway)
	}
}

func TestSweepExpiresLapsedBooking(t *testing.T) {
	f := newEngineFixture(t)

	result := f.create(t)

	// Past the reservation window, sweep expires it
	f.service.SweepOnce(context.Background(), time.Now().UTC().Add(f.cfg.ReservationTTL+time.Minute))

	booking, _ := f.service.GetBooking(context.Background(), result.Booking.ID)
	if booking.State != StateExpired {
		t.Fatalf("state = %s, want %s", booking.State, StateExpired)
	}
	if n := len(f.emitter.ofType(notifications.EventBookingExpired)); n != 1 {
		t.Errorf("expired events = %d, want 1", n)
	}
	if _, err := f.store.Acquire(context.Background(), f.listingID, uuid.New(), time.Minute); err != nil {
		t.Errorf("listing should be free after expiry, got %v", err)
	}
}

func TestLateSuccessAfterExpiryStaysExpired(t *testing.T) {
	f := newEngineFixture(t)

	result := f.create(t)
	f.service.SweepOnce(context.Background(), time.Now().UTC().Add(f.cfg.ReservationTTL+time.Minute))

	// The payment succeeded on the provider side but arrives too late
	f.gateway.verifyResult = f.successCallback(result)
	if err := f.service.HandleCallback(context.Background(), "fakepay", []byte(`{}`), "sig"); err != nil {
		t.Fatalf("late callback must be absorbed, got %v", err)
	}

	booking, _ := f.service.GetBooking(context.Background(), result.Booking.ID)
	if booking.State != StateExpired {
		t.Errorf("state = %s, want %s (terminal states never move)", booking.State, StateExpired)
	}
	if n := len(f.emitter.ofType(notifications.EventBookingConfirmed)); n != 0 {
		t.Errorf("confirmed events = %d, want 0", n)
	}
}

func TestSweepPollsQuietOrders(t *testing.T) {
	f := newEngineFixture(t)

	result := f.create(t)

	// Callback never arrived; gateway says the order is paid
	f.gateway.pollOutcome = gateways.OutcomeSuccess
	f.repo.touch(result.Booking.ID, time.Now().UTC().Add(-5*time.Minute))

	f.service.SweepOnce(context.Background(), time.Now().UTC())

	booking, _ := f.service.GetBooking(context.Background(), result.Booking.ID)
	if booking.State != StateConfirmed {
		t.Errorf("state = %s, want %s after poll recovery", booking.State, StateConfirmed)
	}
	if n := len(f.emitter.ofType(notifications.EventBookingConfirmed)); n != 1 {
		t.Errorf("confirmed events = %d, want 1", n)
	}
}

func TestCancelOnlyWhilePending(t *testing.T) {
	f := newEngineFixture(t)

	// AWAITING_GATEWAY refuses cancellation
	result := f.create(t)
	_, err := f.service.CancelBooking(context.Background(), result.Booking.ID, f.userID)
	if !errors.Is(err, ErrCancelNotAllowed) {
		t.Errorf("expected ErrCancelNotAllowed, got %v", err)
	}

	// A PENDING booking cancels fine
	pendingID := uuid.New()
	pending := &Booking{
		ID:        pendingID,
		ListingID: uuid.New(),
		UserID:    f.userID,
		State:     StatePending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := f.repo.CreateBooking(context.Background(), pending, nil); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	cancelled, err := f.service.CancelBooking(context.Background(), pendingID, f.userID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.State != StateCancelled {
		t.Errorf("state = %s, want %s", cancelled.State, StateCancelled)
	}

	// Another user's booking looks like it does not exist
	_, err = f.service.CancelBooking(context.Background(), result.Booking.ID, uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign booking, got %v", err)
	}
}

func TestUnknownGatewayRejected(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.service.CreateBooking(context.Background(), f.userID, f.listingID, "upi-pay", "")
	if !errors.Is(err, gateways.ErrUnknownGateway) {
		t.Errorf("expected ErrUnknownGateway, got %v", err)
	}

	err = f.service.HandleCallback(context.Background(), "upi-pay", []byte(`{}`), "sig")
	if !errors.Is(err, gateways.ErrUnknownGateway) {
		t.Errorf("expected ErrUnknownGateway for callback, got %v", err)
	}
}
