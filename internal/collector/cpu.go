// CPU utilization estimator: derives a busy percentage from the delta between
// two consecutive readings of the aggregate "cpu" line of /proc/stat.
package collector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/Guliveer/hoststat/internal/models"
)

// cpuFieldCount is the number of counters read from the "cpu" line:
// user nice system idle iowait irq softirq steal.
const cpuFieldCount = 8

// CPUEstimator turns successive CPU counter readings into a utilization
// percentage. It owns the previous sample and must not be shared between
// goroutines without external serialization.
type CPUEstimator struct {
	reader  CPUReader
	prev    models.CPUSample
	hasPrev bool
}

// NewCPUEstimator creates an estimator with no previous sample.
func NewCPUEstimator(reader CPUReader) *CPUEstimator {
	return &CPUEstimator{reader: reader}
}

// Name returns the estimator identifier.
func (e *CPUEstimator) Name() string { return "cpu" }

// Sample reads the current counters and returns the utilization since the
// previous successful call. The first call, a counter reset and an interval
// with no elapsed ticks all report 0. A failed read leaves the stored sample
// untouched so the next delta still spans a valid pair.
func (e *CPUEstimator) Sample(ctx context.Context) (float64, error) {
	cur, err := e.reader.ReadCPU(ctx)
	if err != nil {
		return 0, err
	}

	prev, hasPrev := e.prev, e.hasPrev
	e.prev, e.hasPrev = cur, true

	if !hasPrev || prev.Regressed(cur) {
		return 0, nil
	}
	return Utilization(prev, cur), nil
}

// Utilization computes the busy percentage between two samples, clamped to
// [0, 100]. It returns 0 when no ticks elapsed.
func Utilization(prev, cur models.CPUSample) float64 {
	if cur.Total() <= prev.Total() {
		return 0
	}
	totalWork := float64(cur.Total() - prev.Total())
	var idleWork float64
	if cur.Idle > prev.Idle {
		idleWork = float64(cur.Idle - prev.Idle)
	}
	return clampPercent((1 - idleWork/totalWork) * 100)
}

// ProcStatReader reads CPU counters from proc/stat under an fs.FS root.
type ProcStatReader struct {
	fsys fs.FS
}

// NewProcStatReader returns a reader for <root>/proc/stat.
func NewProcStatReader(fsys fs.FS) *ProcStatReader {
	return &ProcStatReader{fsys: fsys}
}

// ReadCPU implements CPUReader.
func (r *ProcStatReader) ReadCPU(_ context.Context) (models.CPUSample, error) {
	data, err := readSource(r.fsys, "proc/stat")
	if err != nil {
		return models.CPUSample{}, err
	}
	return ParseProcStat(data)
}

// ParseProcStat extracts the aggregate "cpu" line from /proc/stat content.
func ParseProcStat(data []byte) (models.CPUSample, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "cpu" {
			continue
		}
		if len(fields) < cpuFieldCount+1 {
			return models.CPUSample{}, fmt.Errorf("%w: cpu line has %d counters, want %d",
				ErrParse, len(fields)-1, cpuFieldCount)
		}
		var v [cpuFieldCount]uint64
		for i := range v {
			n, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				return models.CPUSample{}, fmt.Errorf("%w: cpu counter %d: %v", ErrParse, i, err)
			}
			v[i] = n
		}
		return models.CPUSample{
			User: v[0], Nice: v[1], System: v[2], Idle: v[3],
			IOWait: v[4], IRQ: v[5], SoftIRQ: v[6], Steal: v[7],
		}, nil
	}
	return models.CPUSample{}, fmt.Errorf("%w: no aggregate cpu line", ErrParse)
}

// GopsutilCPUReader reads CPU counters through gopsutil. gopsutil reports
// seconds, which are converted back to USER_HZ ticks; the estimator only
// uses ratios so the exact tick rate does not matter.
type GopsutilCPUReader struct{}

// NewGopsutilCPUReader creates a gopsutil-backed CPU reader.
func NewGopsutilCPUReader() *GopsutilCPUReader {
	return &GopsutilCPUReader{}
}

// ReadCPU implements CPUReader.
func (r *GopsutilCPUReader) ReadCPU(ctx context.Context) (models.CPUSample, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return models.CPUSample{}, fmt.Errorf("%w: cpu times: %v", ErrSourceUnavailable, err)
	}
	if len(times) == 0 {
		return models.CPUSample{}, fmt.Errorf("%w: cpu times: empty result", ErrParse)
	}
	t := times[0]
	return models.CPUSample{
		User:    secondsToTicks(t.User),
		Nice:    secondsToTicks(t.Nice),
		System:  secondsToTicks(t.System),
		Idle:    secondsToTicks(t.Idle),
		IOWait:  secondsToTicks(t.Iowait),
		IRQ:     secondsToTicks(t.Irq),
		SoftIRQ: secondsToTicks(t.Softirq),
		Steal:   secondsToTicks(t.Steal),
	}, nil
}

// userHZ is the conventional USER_HZ the kernel uses for /proc/stat.
const userHZ = 100

func secondsToTicks(s float64) uint64 {
	if s <= 0 {
		return 0
	}
	return uint64(math.Round(s * userHZ))
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
