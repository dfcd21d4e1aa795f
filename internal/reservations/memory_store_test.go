package reservations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAcquireConflict(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	listingID := uuid.New()

	first, err := store.Acquire(ctx, listingID, uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if first.ListingID != listingID {
		t.Errorf("reservation listing = %s, want %s", first.ListingID, listingID)
	}

	if _, err := store.Acquire(ctx, listingID, uuid.New(), time.Minute); err != ErrHeld {
		t.Errorf("second acquire err = %v, want ErrHeld", err)
	}
}

func TestAcquireSameBookingIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	listingID := uuid.New()
	bookingID := uuid.New()

	if _, err := store.Acquire(ctx, listingID, bookingID, time.Minute); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if _, err := store.Acquire(ctx, listingID, bookingID, time.Minute); err != nil {
		t.Errorf("re-acquire by owner failed: %v", err)
	}
}

// Concurrent bookers on the same listing: exactly one wins.
func TestConcurrentAcquireSingleWinner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	listingID := uuid.New()

	const bookers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0

	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Acquire(ctx, listingID, uuid.New(), time.Minute); err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Errorf("winners = %d, want exactly 1", won)
	}
}

func TestReleaseOwnerChecked(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	listingID := uuid.New()
	owner := uuid.New()

	if _, err := store.Acquire(ctx, listingID, owner, time.Minute); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// Release by a different booking is a no-op
	if err := store.Release(ctx, listingID, uuid.New()); err != nil {
		t.Fatalf("foreign release errored: %v", err)
	}
	if _, err := store.Acquire(ctx, listingID, uuid.New(), time.Minute); err != ErrHeld {
		t.Errorf("hold vanished after foreign release: err = %v, want ErrHeld", err)
	}

	// Owner release frees the listing
	if err := store.Release(ctx, listingID, owner); err != nil {
		t.Fatalf("owner release errored: %v", err)
	}
	if _, err := store.Acquire(ctx, listingID, uuid.New(), time.Minute); err != nil {
		t.Errorf("listing not bookable after owner release: %v", err)
	}

	// Double release is a no-op
	if err := store.Release(ctx, listingID, owner); err != nil {
		t.Errorf("double release errored: %v", err)
	}
}

func TestExpiredHoldIsFree(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	listingID := uuid.New()

	if _, err := store.Acquire(ctx, listingID, uuid.New(), -time.Second); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// A logically expired hold does not block a new booker
	if _, err := store.Acquire(ctx, listingID, uuid.New(), time.Minute); err != nil {
		t.Errorf("acquire over expired hold failed: %v", err)
	}
}

func TestExpiredListsWithoutDeleting(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	listingID := uuid.New()
	bookingID := uuid.New()

	if _, err := store.Acquire(ctx, listingID, bookingID, -time.Second); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	expired, err := store.Expired(ctx, time.Now())
	if err != nil {
		t.Fatalf("Expired failed: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expired count = %d, want 1", len(expired))
	}
	if expired[0].BookingID != bookingID {
		t.Errorf("expired booking = %s, want %s", expired[0].BookingID, bookingID)
	}

	// Listing stays present until released
	again, err := store.Expired(ctx, time.Now())
	if err != nil {
		t.Fatalf("second Expired failed: %v", err)
	}
	if len(again) != 1 {
		t.Errorf("expired entry deleted by listing: count = %d, want 1", len(again))
	}
}
