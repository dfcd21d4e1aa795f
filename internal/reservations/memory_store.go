package reservations

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with a mutex-guarded map. Used in tests and as
// the fallback when Redis is disabled; holds do not survive a restart, which
// the ledger's age-based sweep tolerates.
type MemoryStore struct {
	mu    sync.Mutex
	holds map[uuid.UUID]Reservation
}

// NewMemoryStore creates an in-memory reservation store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{holds: make(map[uuid.UUID]Reservation)}
}

// Acquire places a hold on the listing unless a live hold for a different
// booking exists
func (s *MemoryStore) Acquire(ctx context.Context, listingID, bookingID uuid.UUID, ttl time.Duration) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.holds[listingID]; ok {
		if existing.ExpiresAt.After(now) && existing.BookingID != bookingID {
			return nil, ErrHeld
		}
	}

	r := Reservation{
		ListingID:  listingID,
		BookingID:  bookingID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	s.holds[listingID] = r
	return &r, nil
}

// Release removes the hold if it is owned by the booking
func (s *MemoryStore) Release(ctx context.Context, listingID, bookingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.holds[listingID]
	if !ok || existing.BookingID != bookingID {
		return nil
	}
	delete(s.holds, listingID)
	return nil
}

// Expired lists holds whose expiry has passed without deleting them
func (s *MemoryStore) Expired(ctx context.Context, now time.Time) ([]Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Reservation
	for _, r := range s.holds {
		if !r.ExpiresAt.After(now) {
			expired = append(expired, r)
		}
	}
	return expired, nil
}
