package bookings

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"rently/pkg/logger"
)

type stubEngine struct {
	sweeps atomic.Int64
}

func (s *stubEngine) CreateBooking(ctx context.Context, userID, listingID uuid.UUID, gatewayName, idempotencyKey string) (*CreateResult, error) {
	return nil, nil
}
func (s *stubEngine) HandleCallback(ctx context.Context, gatewayName string, payload []byte, signature string) error {
	return nil
}
func (s *stubEngine) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error) {
	return nil, nil
}
func (s *stubEngine) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return nil, nil
}
func (s *stubEngine) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]Booking, error) {
	return nil, nil
}
func (s *stubEngine) SweepOnce(ctx context.Context, now time.Time) {
	s.sweeps.Add(1)
}

func TestSweeperRunsAndStops(t *testing.T) {
	engine := &stubEngine{}
	sweeper := NewSweeper(engine, SweeperConfig{
		Interval: 5 * time.Millisecond,
		Timeout:  time.Second,
	}, logger.GetDefault())

	sweeper.Start(context.Background())

	deadline := time.After(time.Second)
	for engine.sweeps.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper never ran")
		case <-time.After(time.Millisecond):
		}
	}

	sweeper.Stop()
	after := engine.sweeps.Load()
	time.Sleep(20 * time.Millisecond)
	if engine.sweeps.Load() != after {
		t.Error("sweeper kept running after Stop")
	}
}

func TestSweeperStopIsIdempotent(t *testing.T) {
	sweeper := NewSweeper(&stubEngine{}, DefaultSweeperConfig(), logger.GetDefault())
	sweeper.Start(context.Background())
	sweeper.Stop()
	sweeper.Stop()
}
