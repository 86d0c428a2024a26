// Sampler runs the three estimators once per tick, in a fixed order, and
// assembles their results into a Snapshot. A failing estimator is logged and
// recorded in its Reading; it never prevents the others from running.
package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/hoststat/internal/models"
)

// TopologyClassifier decides which block devices the disk tracker reads.
type TopologyClassifier interface {
	Classify(ctx context.Context) models.Topology
}

// Sampler owns one instance of each estimator.
type Sampler struct {
	cpu        *CPUEstimator
	memory     *MemoryEstimator
	disk       *DiskErrorTracker
	classifier TopologyClassifier
	topology   models.Topology
	logger     *zap.Logger
	now        func() time.Time
}

// NewSampler creates a sampler and classifies the device topology once.
func NewSampler(ctx context.Context, cpu *CPUEstimator, memory *MemoryEstimator,
	disk *DiskErrorTracker, classifier TopologyClassifier, logger *zap.Logger) *Sampler {
	s := &Sampler{
		cpu:        cpu,
		memory:     memory,
		disk:       disk,
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
	}
	s.Reclassify(ctx)
	return s
}

// Reclassify re-runs topology detection.
func (s *Sampler) Reclassify(ctx context.Context) models.Topology {
	s.topology = s.classifier.Classify(ctx)
	s.logger.Info("Detected device topology", zap.Stringer("topology", s.topology))
	return s.topology
}

// Topology returns the topology used for disk sampling.
func (s *Sampler) Topology() models.Topology { return s.topology }

// Sample takes one reading of every metric.
func (s *Sampler) Sample(ctx context.Context) models.Snapshot {
	snap := models.Snapshot{
		Timestamp: s.now().UTC(),
		Topology:  s.topology,
	}

	snap.CPU.Value, snap.CPU.Err = s.cpu.Sample(ctx)
	s.logFailure(s.cpu.Name(), snap.CPU.Err)

	snap.Memory.Value, snap.Memory.Err = s.memory.Sample(ctx)
	s.logFailure(s.memory.Name(), snap.Memory.Err)

	snap.DiskErrors.Value, snap.DiskErrors.Err = s.disk.Sample(ctx, s.topology)
	s.logFailure(s.disk.Name(), snap.DiskErrors.Err)

	return snap
}

func (s *Sampler) logFailure(name string, err error) {
	if err == nil {
		return
	}
	s.logger.Debug("Sampling failed",
		zap.String("metric", name),
		zap.Error(err))
}
