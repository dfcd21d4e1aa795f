package bookings

import (
	"time"

	"github.com/google/uuid"

	"rently/internal/listings"
)

// Booking is the ledger record for one booking attempt. FeeAmount is frozen
// at creation from the fee policy and never recomputed, so a rent change
// mid-payment cannot shift what the user owes.
type Booking struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID   uuid.UUID     `gorm:"type:uuid;index;not null" json:"listing_id"`
	UserID      uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	ListingType listings.Type `gorm:"type:varchar(10);not null" json:"listing_type"`

	// FeeAmount is the booking fee in rupees, frozen at creation
	FeeAmount int64 `gorm:"not null" json:"fee_amount"`

	State State `gorm:"type:varchar(20);not null;index" json:"state"`

	// PaymentOrderID points at the active gateway order, nil until one exists
	PaymentOrderID *uuid.UUID `gorm:"type:uuid" json:"payment_order_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	// TerminalAt is set exactly once, when the booking reaches a terminal state
	TerminalAt *time.Time `json:"terminal_at,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// IsTerminal reports whether the booking has reached a final state
func (b *Booking) IsTerminal() bool {
	return b.State.IsTerminal()
}

// PaymentOrder records one attempt to collect the booking fee through a
// gateway. A booking accumulates at most one order per create attempt; a
// replaced order stays in the table for audit with a FAILED status.
type PaymentOrder struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`

	// Gateway is the registry name the order was opened through
	Gateway string `gorm:"type:varchar(20);not null" json:"gateway"`

	// GatewayOrderRef is the provider-side order/session id. Callbacks and
	// polls are matched to bookings through this column.
	GatewayOrderRef string `gorm:"type:varchar(255);uniqueIndex;not null" json:"gateway_order_ref"`

	// CheckoutRef is what the client opens checkout with (order id for
	// in-page checkout, hosted URL for redirect checkout). Persisted so an
	// idempotent replay can hand the same instructions back.
	CheckoutRef string `gorm:"type:varchar(1024)" json:"checkout_ref,omitempty"`

	// Amount is the order amount in rupees, copied from the booking fee
	Amount int64 `gorm:"not null" json:"amount"`

	// Attempt is 1-based; retries within one create call share an attempt
	// counter sequence.
	Attempt int `gorm:"not null;default:1" json:"attempt"`

	Status PaymentOrderStatus `gorm:"type:varchar(20);not null" json:"status"`

	// PaymentRef is the provider-side payment id, set on resolution
	PaymentRef string `gorm:"type:varchar(255)" json:"payment_ref,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the table name for PaymentOrder
func (PaymentOrder) TableName() string {
	return "payment_orders"
}

// IdempotencyKey maps a client-supplied key to the booking it produced.
// Replays of the same key return the original booking instead of creating
// a second one. Rows expire and are reaped by the sweeper.
type IdempotencyKey struct {
	Key       string    `gorm:"type:varchar(255);primaryKey" json:"key"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ListingID uuid.UUID `gorm:"type:uuid;not null" json:"listing_id"`
	BookingID uuid.UUID `gorm:"type:uuid;not null" json:"booking_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

// TableName sets the table name for IdempotencyKey
func (IdempotencyKey) TableName() string {
	return "booking_idempotency_keys"
}
