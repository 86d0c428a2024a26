// Memory saturation estimator: the share of RAM that is neither free nor
// reclaimable page cache / buffers, from /proc/meminfo.
package collector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Guliveer/hoststat/internal/models"
)

// MemoryEstimator computes memory saturation. It keeps no state between calls.
type MemoryEstimator struct {
	reader MemoryReader
}

// NewMemoryEstimator creates a memory estimator on top of reader.
func NewMemoryEstimator(reader MemoryReader) *MemoryEstimator {
	return &MemoryEstimator{reader: reader}
}

// Name returns the estimator identifier.
func (e *MemoryEstimator) Name() string { return "memory" }

// Sample returns the current saturation percentage in [0, 100].
func (e *MemoryEstimator) Sample(ctx context.Context) (float64, error) {
	s, err := e.reader.ReadMemory(ctx)
	if err != nil {
		return 0, err
	}
	return Saturation(s)
}

// Saturation returns (total - free - buffers - cached) * 100 / total, clamped
// to [0, 100]. Kernels can report free+buffers+cached above total, in which
// case the result is 0 rather than negative.
func Saturation(s models.MemorySample) (float64, error) {
	if s.Total == 0 {
		return 0, fmt.Errorf("%w: MemTotal is zero", ErrParse)
	}
	used := int64(s.Total) - int64(s.Free) - int64(s.Buffers) - int64(s.Cached)
	return clampPercent(float64(used) * 100 / float64(s.Total)), nil
}

// ProcMeminfoReader reads memory counters from proc/meminfo under an fs.FS root.
type ProcMeminfoReader struct {
	fsys fs.FS
}

// NewProcMeminfoReader returns a reader for <root>/proc/meminfo.
func NewProcMeminfoReader(fsys fs.FS) *ProcMeminfoReader {
	return &ProcMeminfoReader{fsys: fsys}
}

// ReadMemory implements MemoryReader.
func (r *ProcMeminfoReader) ReadMemory(_ context.Context) (models.MemorySample, error) {
	data, err := readSource(r.fsys, "proc/meminfo")
	if err != nil {
		return models.MemorySample{}, err
	}
	return ParseMeminfo(data)
}

// ParseMeminfo extracts MemTotal, MemFree, Buffers and Cached (kB) from
// /proc/meminfo content. Line order is irrelevant; all four must be present.
func ParseMeminfo(data []byte) (models.MemorySample, error) {
	var s models.MemorySample
	targets := map[string]*uint64{
		"MemTotal": &s.Total,
		"MemFree":  &s.Free,
		"Buffers":  &s.Buffers,
		"Cached":   &s.Cached,
	}
	found := make(map[string]bool, len(targets))

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		dst, wanted := targets[key]
		if !wanted {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		*dst = n
		found[key] = true
	}

	for key := range targets {
		if !found[key] {
			return models.MemorySample{}, fmt.Errorf("%w: %s not found in meminfo", ErrParse, key)
		}
	}
	if s.Total == 0 {
		return models.MemorySample{}, fmt.Errorf("%w: MemTotal is zero", ErrParse)
	}
	return s, nil
}

// GopsutilMemoryReader reads memory counters through gopsutil and converts
// them from bytes to kB.
type GopsutilMemoryReader struct{}

// NewGopsutilMemoryReader creates a gopsutil-backed memory reader.
func NewGopsutilMemoryReader() *GopsutilMemoryReader {
	return &GopsutilMemoryReader{}
}

// ReadMemory implements MemoryReader.
func (r *GopsutilMemoryReader) ReadMemory(ctx context.Context) (models.MemorySample, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.MemorySample{}, fmt.Errorf("%w: virtual memory: %v", ErrSourceUnavailable, err)
	}
	return memorySampleFromStat(v)
}

// memorySampleFromStat converts gopsutil's byte counters to a MemorySample.
// On Linux gopsutil folds SReclaimable into Cached; it is taken back out so
// Cached matches the meminfo field read by ProcMeminfoReader.
func memorySampleFromStat(v *mem.VirtualMemoryStat) (models.MemorySample, error) {
	if v.Total == 0 {
		return models.MemorySample{}, fmt.Errorf("%w: total memory is zero", ErrParse)
	}
	cached := v.Cached
	if v.Sreclaimable <= cached {
		cached -= v.Sreclaimable
	} else {
		cached = 0
	}
	return models.MemorySample{
		Total:   v.Total / 1024,
		Free:    v.Free / 1024,
		Buffers: v.Buffers / 1024,
		Cached:  cached / 1024,
	}, nil
}
