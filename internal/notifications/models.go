package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a terminal booking transition worth telling the user
// (and the landlord) about
type EventType string

const (
	EventBookingConfirmed EventType = "BOOKING_CONFIRMED"
	EventBookingFailed    EventType = "BOOKING_FAILED"
	EventBookingExpired   EventType = "BOOKING_EXPIRED"
	EventBookingCancelled EventType = "BOOKING_CANCELLED"
)

// BookingEvent is the message published for downstream notification delivery
// (email, in-app). Delivery is at-least-once and owned by the notification
// service; this engine only emits.
type BookingEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	BookingID uuid.UUID `json:"booking_id"`
	ListingID uuid.UUID `json:"listing_id"`
	UserID    uuid.UUID `json:"user_id"`

	// Recipient contact as known at emit time
	RecipientEmail string `json:"recipient_email,omitempty"`
	RecipientName  string `json:"recipient_name,omitempty"`

	// FeeAmount is the frozen booking fee in rupees
	FeeAmount int64 `json:"fee_amount"`

	// Extra template data for the notification service
	Data map[string]interface{} `json:"data,omitempty"`
}

// NewBookingEvent creates an event with id and timestamp filled in
func NewBookingEvent(eventType EventType, bookingID, listingID, userID uuid.UUID, feeAmount int64) *BookingEvent {
	return &BookingEvent{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		BookingID:  bookingID,
		ListingID:  listingID,
		UserID:     userID,
		FeeAmount:  feeAmount,
		Data:       make(map[string]interface{}),
	}
}

// GetPartitionKey routes all events for one user to the same partition
func (e *BookingEvent) GetPartitionKey() string {
	return e.UserID.String()
}

// ToJSON serializes the event for the wire
func (e *BookingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
