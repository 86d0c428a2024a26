package collector

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/hoststat/internal/models"
)

type fixedClassifier struct {
	topology models.Topology
	calls    int
}

func (f *fixedClassifier) Classify(context.Context) models.Topology {
	f.calls++
	return f.topology
}

func newTestSampler(fsys fstest.MapFS, classifier TopologyClassifier) *Sampler {
	logger := zap.NewNop()
	return NewSampler(context.Background(),
		NewCPUEstimator(NewProcStatReader(fsys)),
		NewMemoryEstimator(NewProcMeminfoReader(fsys)),
		NewDiskErrorTracker(NewBlockReader(fsys, ErrorSourceIOErr, nil), "mmcblk0", logger),
		classifier,
		logger,
	)
}

func TestSampler_Sample(t *testing.T) {
	fsys := fstest.MapFS{
		"proc/stat":                          {Data: []byte("cpu  100 0 0 900 0 0 0 0\n")},
		"proc/meminfo":                       {Data: []byte(sampleMeminfo)},
		"sys/block/mmcblk0/stat":             {Data: statRecord(0, 0)},
		"sys/block/mmcblk0/device/ioerr_cnt": {Data: []byte("0x0\n")},
	}
	classifier := &fixedClassifier{topology: models.RaspberryPiSingleDevice}
	s := newTestSampler(fsys, classifier)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	snap := s.Sample(context.Background())
	if !snap.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", snap.Timestamp, fixed)
	}
	if snap.Topology != models.RaspberryPiSingleDevice {
		t.Errorf("Topology = %v, want raspberry-pi", snap.Topology)
	}
	if !snap.CPU.OK() || snap.CPU.Value != 0 {
		t.Errorf("CPU = %+v, want 0 on first tick", snap.CPU)
	}
	if !snap.Memory.OK() || snap.Memory.Value != 40 {
		t.Errorf("Memory = %+v, want 40", snap.Memory)
	}
	if !snap.DiskErrors.OK() || snap.DiskErrors.Value != 0 {
		t.Errorf("DiskErrors = %+v, want 0", snap.DiskErrors)
	}
	if classifier.calls != 1 {
		t.Errorf("classifier calls = %d, want 1", classifier.calls)
	}
}

func TestSampler_FailuresAreLocal(t *testing.T) {
	fsys := fstest.MapFS{
		"proc/meminfo": {Data: []byte(sampleMeminfo)},
	}
	s := newTestSampler(fsys, &fixedClassifier{topology: models.GenericAllBlockDevices})

	snap := s.Sample(context.Background())
	if !errors.Is(snap.CPU.Err, ErrSourceUnavailable) {
		t.Errorf("CPU.Err = %v, want ErrSourceUnavailable", snap.CPU.Err)
	}
	if !snap.Memory.OK() {
		t.Errorf("Memory.Err = %v, want readable", snap.Memory.Err)
	}
	if !errors.Is(snap.DiskErrors.Err, ErrUnmeasurable) {
		t.Errorf("DiskErrors.Err = %v, want ErrUnmeasurable", snap.DiskErrors.Err)
	}
	if snap.Empty() {
		t.Error("snapshot with readable memory should not be empty")
	}
}

func TestSampler_Reclassify(t *testing.T) {
	classifier := &fixedClassifier{topology: models.GenericAllBlockDevices}
	s := newTestSampler(fstest.MapFS{}, classifier)

	classifier.topology = models.RaspberryPiSingleDevice
	if got := s.Reclassify(context.Background()); got != models.RaspberryPiSingleDevice {
		t.Errorf("Reclassify() = %v, want raspberry-pi", got)
	}
	if s.Topology() != models.RaspberryPiSingleDevice {
		t.Errorf("Topology() = %v, want raspberry-pi", s.Topology())
	}
}
