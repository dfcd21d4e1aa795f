package bookings

import (
	"context"
	"sync"
	"time"

	"rently/pkg/logger"
)

// SweeperConfig configures the background reconciliation sweep
type SweeperConfig struct {
	// Interval between sweep passes
	Interval time.Duration
	// Timeout bounds a single pass
	Timeout time.Duration
}

// DefaultSweeperConfig returns sensible sweep defaults
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: 1 * time.Minute,
		Timeout:  30 * time.Second,
	}
}

// Sweeper periodically drives the engine's reconciliation pass. One instance
// runs per process; the pass itself is written to tolerate overlapping
// sweepers on other replicas, since every transition is a compare-and-set.
type Sweeper struct {
	service Service
	config  SweeperConfig
	logger  *logger.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewSweeper creates a sweeper for the given engine
func NewSweeper(service Service, config SweeperConfig, log *logger.Logger) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultSweeperConfig().Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultSweeperConfig().Timeout
	}
	return &Sweeper{
		service: service,
		config:  config,
		logger:  log,
		done:    make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; the loop runs until
// Stop is called or the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("reconciliation sweeper started",
		"interval", s.config.Interval.String())
}

// Stop shuts the loop down and waits for an in-flight pass to finish
func (s *Sweeper) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	s.logger.Info("reconciliation sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	s.service.SweepOnce(sweepCtx, start.UTC())
	s.logger.Debug("sweep pass finished", "duration", time.Since(start).String())
}
