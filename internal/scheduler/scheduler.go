// Package scheduler implements the tick loop that drives sampling. Each tick
// produces one Snapshot which is handed to a callback; the scheduler does
// not render anything itself.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/hoststat/internal/models"
)

// Sampler takes one reading of every metric.
type Sampler interface {
	Sample(ctx context.Context) models.Snapshot
}

// Scheduler runs the sampler at a fixed interval.
type Scheduler struct {
	sampler  Sampler
	interval time.Duration
	logger   *zap.Logger

	onSample func(models.Snapshot)
}

// New creates a Scheduler ticking every interval.
func New(sampler Sampler, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sampler:  sampler,
		interval: interval,
		logger:   logger,
	}
}

// OnSample sets the callback invoked with every snapshot, in tick order.
func (s *Scheduler) OnSample(fn func(models.Snapshot)) {
	s.onSample = fn
}

// Start samples immediately and then once per interval until ctx is
// cancelled. Ticks never overlap: a slow tick delays the next one.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if first := s.tick(ctx); first.Empty() {
		s.logger.Warn("No metric source readable on first tick, will keep retrying")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) models.Snapshot {
	snap := s.sampler.Sample(ctx)
	s.logger.Debug("Sampled metrics", zap.Time("timestamp", snap.Timestamp))
	if s.onSample != nil {
		s.onSample(snap)
	}
	return snap
}
