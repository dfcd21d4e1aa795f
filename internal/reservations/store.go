package reservations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrHeld is returned by Acquire when a live reservation for the listing is
// owned by a different booking.
var ErrHeld = errors.New("listing is currently held by another booking")

// Reservation is a short-lived exclusive hold on a listing. At most one live
// (non-expired) reservation exists per listing.
type Reservation struct {
	ListingID  uuid.UUID `json:"listing_id"`
	BookingID  uuid.UUID `json:"booking_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Store is the reservation contract. Acquire must be atomic with respect to
// concurrent callers for the same listing. Release is a no-op when the hold
// is already gone or owned by a different booking. Expired lists expired
// holds without deleting them: the caller transitions the booking ledger
// first and then calls Release, so a racing late confirmation observes a
// terminal booking instead of a resurrected hold.
type Store interface {
	Acquire(ctx context.Context, listingID, bookingID uuid.UUID, ttl time.Duration) (*Reservation, error)
	Release(ctx context.Context, listingID, bookingID uuid.UUID) error
	Expired(ctx context.Context, now time.Time) ([]Reservation, error)
}
