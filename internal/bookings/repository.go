package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the persistence contract for the booking ledger. Every state
// transition goes through a compare-and-set so a lost race surfaces as
// ErrConflict instead of silently overwriting a terminal state.
type Repository interface {
	CreateBooking(ctx context.Context, booking *Booking, key *IdempotencyKey) error
	FindIdempotentBooking(ctx context.Context, key string, userID uuid.UUID) (*Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Booking, error)

	TransitionState(ctx context.Context, id uuid.UUID, from []State, to State) error
	ActivateOrder(ctx context.Context, bookingID, orderID uuid.UUID) error

	CreatePaymentOrder(ctx context.Context, order *PaymentOrder) error
	ResolveOrder(ctx context.Context, orderID uuid.UUID, status PaymentOrderStatus, paymentRef string) error
	GetOrderByGatewayRef(ctx context.Context, ref string) (*PaymentOrder, error)
	GetActiveOrder(ctx context.Context, bookingID uuid.UUID) (*PaymentOrder, error)

	ListAwaitingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error)
	ListNonTerminalOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error)

	DeleteExpiredIdempotencyKeys(ctx context.Context, now time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a booking repository backed by PostgreSQL
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// CreateBooking inserts the booking, and the idempotency key when one was
// supplied, in a single transaction. A duplicate key loses to the earlier
// writer and returns ErrConflict; the caller re-reads through
// FindIdempotentBooking to find the winning booking.
func (r *gormRepository) CreateBooking(ctx context.Context, booking *Booking, key *IdempotencyKey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if key != nil {
			if err := tx.Create(key).Error; err != nil {
				return fmt.Errorf("%w: idempotency key already used", ErrConflict)
			}
		}
		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		return nil
	})
}

// FindIdempotentBooking returns the booking previously created under the
// given idempotency key by the same user, or ErrNotFound.
func (r *gormRepository) FindIdempotentBooking(ctx context.Context, key string, userID uuid.UUID) (*Booking, error) {
	var record IdempotencyKey
	err := r.db.WithContext(ctx).
		Where("key = ? AND user_id = ?", key, userID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return r.GetByID(ctx, record.BookingID)
}

// GetByID fetches a booking by id
func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return &booking, nil
}

// ListByUser returns the user's bookings, newest first
func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Booking, error) {
	var bookingsList []Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookingsList).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user bookings: %w", err)
	}
	return bookingsList, nil
}

// TransitionState moves the booking from one of the expected states to the
// target state. The WHERE clause is the compare half of the compare-and-set:
// zero rows affected means another writer got there first (or the booking is
// already terminal), which surfaces as ErrConflict.
func (r *gormRepository) TransitionState(ctx context.Context, id uuid.UUID, from []State, to State) error {
	updates := map[string]interface{}{
		"state":      to,
		"updated_at": time.Now().UTC(),
	}
	if to.IsTerminal() {
		updates["terminal_at"] = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND state IN ?", id, stateStrings(from)).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to transition booking state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: booking %s is not in %v", ErrConflict, id, from)
	}
	return nil
}

// ActivateOrder moves the booking from PENDING to AWAITING_GATEWAY against
// the given order, and flips the order to ACTIVE, atomically.
func (r *gormRepository) ActivateOrder(ctx context.Context, bookingID, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Booking{}).
			Where("id = ? AND state = ?", bookingID, StatePending).
			Updates(map[string]interface{}{
				"state":            StateAwaitingGateway,
				"payment_order_id": orderID,
				"updated_at":       time.Now().UTC(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to activate booking: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: booking %s left PENDING before activation", ErrConflict, bookingID)
		}

		if err := tx.Model(&PaymentOrder{}).
			Where("id = ?", orderID).
			Updates(map[string]interface{}{
				"status":     OrderActive,
				"updated_at": time.Now().UTC(),
			}).Error; err != nil {
			return fmt.Errorf("failed to activate payment order: %w", err)
		}
		return nil
	})
}

// CreatePaymentOrder inserts a gateway order record
func (r *gormRepository) CreatePaymentOrder(ctx context.Context, order *PaymentOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to insert payment order: %w", err)
	}
	return nil
}

// ResolveOrder records the final status of a gateway order
func (r *gormRepository) ResolveOrder(ctx context.Context, orderID uuid.UUID, status PaymentOrderStatus, paymentRef string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if paymentRef != "" {
		updates["payment_ref"] = paymentRef
	}
	if err := r.db.WithContext(ctx).
		Model(&PaymentOrder{}).
		Where("id = ?", orderID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to resolve payment order: %w", err)
	}
	return nil
}

// GetOrderByGatewayRef looks up an order by the provider-side reference.
// This is how an inbound callback finds its booking.
func (r *gormRepository) GetOrderByGatewayRef(ctx context.Context, ref string) (*PaymentOrder, error) {
	var order PaymentOrder
	err := r.db.WithContext(ctx).Where("gateway_order_ref = ?", ref).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch payment order: %w", err)
	}
	return &order, nil
}

// GetActiveOrder returns the ACTIVE order for a booking, used by the sweep
// to poll the gateway.
func (r *gormRepository) GetActiveOrder(ctx context.Context, bookingID uuid.UUID) (*PaymentOrder, error) {
	var order PaymentOrder
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, OrderActive).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch active order: %w", err)
	}
	return &order, nil
}

// ListAwaitingOlderThan returns AWAITING_GATEWAY bookings last touched
// before the cutoff, oldest first. These are the poll candidates.
func (r *gormRepository) ListAwaitingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error) {
	var bookingsList []Booking
	err := r.db.WithContext(ctx).
		Where("state = ? AND updated_at < ?", StateAwaitingGateway, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&bookingsList).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list awaiting bookings: %w", err)
	}
	return bookingsList, nil
}

// ListNonTerminalOlderThan returns PENDING and AWAITING_GATEWAY bookings
// created before the cutoff. Backstop for bookings whose reservation record
// was lost before the normal expiry path could see it.
func (r *gormRepository) ListNonTerminalOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error) {
	var bookingsList []Booking
	err := r.db.WithContext(ctx).
		Where("state IN ? AND created_at < ?",
			stateStrings([]State{StatePending, StateAwaitingGateway}), cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&bookingsList).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale bookings: %w", err)
	}
	return bookingsList, nil
}

// DeleteExpiredIdempotencyKeys reaps keys past their expiry
func (r *gormRepository) DeleteExpiredIdempotencyKeys(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&IdempotencyKey{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reap idempotency keys: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func stateStrings(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
