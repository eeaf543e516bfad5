package watchkeeper

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Default loop timings, used when a Fleet is given non-positive values.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultCycleTimeout = 5 * time.Second
)

// Fleet runs one Watch per vessel, each in its own goroutine.
type Fleet struct {
	watches  []*Watch
	interval time.Duration
	timeout  time.Duration
	logger   Logger
}

// NewFleet creates a fleet runner. A cycle timeout longer than the interval
// is clamped to the interval.
func NewFleet(interval, timeout time.Duration, watches ...*Watch) (*Fleet, error) {
	if len(watches) == 0 {
		return nil, ErrNoVessels
	}
	seen := make(map[string]bool, len(watches))
	for _, w := range watches {
		if seen[w.VesselID()] {
			return nil, fmt.Errorf("watchkeeper: vessel %q watched twice", w.VesselID())
		}
		seen[w.VesselID()] = true
	}

	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultCycleTimeout
	}
	if timeout > interval {
		timeout = interval
	}
	return &Fleet{
		watches:  watches,
		interval: interval,
		timeout:  timeout,
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger for the fleet.
func (f *Fleet) SetLogger(logger Logger) {
	f.logger = logger
}

// Run blocks until ctx is cancelled or a watch returns an error.
func (f *Fleet) Run(ctx context.Context) error {
	f.logger.Info("fleet watch started",
		"vessels", len(f.watches),
		"interval", f.interval.String(),
		"cycle_timeout", f.timeout.String(),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range f.watches {
		g.Go(func() error {
			return w.Run(gctx, f.interval, f.timeout)
		})
	}
	err := g.Wait()

	f.logger.Info("fleet watch stopped")
	return err
}
