// Package collector implements the three per-tick estimators (CPU
// utilization, memory saturation and disk I/O error deltas) together with
// the readers that feed them raw kernel counters.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/Guliveer/hoststat/internal/models"
)

var (
	// ErrSourceUnavailable means the underlying data source could not be
	// opened or read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrParse means the source was read but the expected fields were
	// missing or malformed.
	ErrParse = errors.New("parse error")

	// ErrUnmeasurable means the disk tracker found no readable device.
	ErrUnmeasurable = errors.New("no readable block device")
)

// CPUReader yields the current aggregate CPU counters.
type CPUReader interface {
	ReadCPU(ctx context.Context) (models.CPUSample, error)
}

// MemoryReader yields the current memory counters.
type MemoryReader interface {
	ReadMemory(ctx context.Context) (models.MemorySample, error)
}

// readSource reads name from fsys, mapping any failure to ErrSourceUnavailable.
func readSource(fsys fs.FS, name string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, name, err)
	}
	return data, nil
}
