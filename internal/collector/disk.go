// Disk I/O error delta tracker: sums per-device error counters from sysfs and
// reports how many new errors appeared since the previous tick.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Guliveer/hoststat/internal/models"
)

// minStatFields is the number of fields a /sys/block/<dev>/stat record must
// carry (kernel 4.18+ layout, up to and including discard sectors).
const minStatFields = 14

// Error sources selecting where a device's error count comes from.
const (
	// ErrorSourceIOErr reads device/ioerr_cnt, the SCSI/ATA count of
	// commands completed with an error. Devices without it report 0.
	ErrorSourceIOErr = "ioerr"
	// ErrorSourceStatFields sums explicitly configured stat field indices.
	ErrorSourceStatFields = "stat"
)

// notTracked marks a tracker that has not completed a successful read yet.
const notTracked int64 = -1

// BlockReader reads block device records from sys/block under an fs.FS root.
type BlockReader struct {
	fsys        fs.FS
	errorSource string
	errorFields []int
}

// NewBlockReader returns a reader for <root>/sys/block. errorFields is only
// used with ErrorSourceStatFields.
func NewBlockReader(fsys fs.FS, errorSource string, errorFields []int) *BlockReader {
	if errorSource == "" {
		errorSource = ErrorSourceIOErr
	}
	return &BlockReader{
		fsys:        fsys,
		errorSource: errorSource,
		errorFields: errorFields,
	}
}

// Devices lists block device names, skipping entries that start with a dot.
func (r *BlockReader) Devices() ([]string, error) {
	entries, err := fs.ReadDir(r.fsys, "sys/block")
	if err != nil {
		return nil, fmt.Errorf("%w: sys/block: %v", ErrSourceUnavailable, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ReadDevice reads and parses one device's stat record and error count.
func (r *BlockReader) ReadDevice(name string) (models.DeviceStat, error) {
	dir := path.Join("sys/block", name)
	data, err := readSource(r.fsys, path.Join(dir, "stat"))
	if err != nil {
		return models.DeviceStat{}, err
	}
	fields, err := ParseDeviceStat(data)
	if err != nil {
		return models.DeviceStat{}, fmt.Errorf("device %s: %w", name, err)
	}

	stat := models.DeviceStat{Name: name, Fields: fields}
	switch r.errorSource {
	case ErrorSourceStatFields:
		for _, idx := range r.errorFields {
			if idx < 0 || idx >= len(fields) {
				return models.DeviceStat{}, fmt.Errorf("%w: device %s: stat field %d out of range (%d fields)",
					ErrParse, name, idx, len(fields))
			}
			stat.Errors += fields[idx]
		}
	default:
		n, err := r.readIOErrCount(dir)
		if err != nil {
			return models.DeviceStat{}, fmt.Errorf("device %s: %w", name, err)
		}
		stat.Errors = n
	}
	return stat, nil
}

// readIOErrCount reads device/ioerr_cnt (a hex counter such as "0x1f").
// A missing attribute is not an error: the device simply exposes no count.
func (r *BlockReader) readIOErrCount(dir string) (uint64, error) {
	data, err := fs.ReadFile(r.fsys, path.Join(dir, "device", "ioerr_cnt"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: ioerr_cnt: %v", ErrSourceUnavailable, err)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: ioerr_cnt: %v", ErrParse, err)
	}
	return n, nil
}

// ParseDeviceStat parses the space-separated counters of a block stat record.
// At least 14 fields are required; additional fields are kept.
func ParseDeviceStat(data []byte) ([]uint64, error) {
	raw := strings.Fields(string(data))
	if len(raw) < minStatFields {
		return nil, fmt.Errorf("%w: stat record has %d fields, want at least %d",
			ErrParse, len(raw), minStatFields)
	}
	fields := make([]uint64, len(raw))
	for i, s := range raw {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: stat field %d: %v", ErrParse, i, err)
		}
		fields[i] = n
	}
	return fields, nil
}

// DiskErrorTracker reports the number of new block device errors per tick.
// It owns the previous total and must be called from a single goroutine.
type DiskErrorTracker struct {
	reader *BlockReader
	device string
	prev   int64
	logger *zap.Logger
}

// NewDiskErrorTracker creates a tracker. device is the single device read in
// RaspberryPiSingleDevice mode (normally "mmcblk0").
func NewDiskErrorTracker(reader *BlockReader, device string, logger *zap.Logger) *DiskErrorTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskErrorTracker{
		reader: reader,
		device: device,
		prev:   notTracked,
		logger: logger,
	}
}

// Name returns the estimator identifier.
func (t *DiskErrorTracker) Name() string { return "disk" }

// Sample returns the error delta since the previous successful call. The
// first successful call reports 0. A total lower than the previous one (a
// counter reset or a removed device) also reports 0 and re-bases. When no
// device can be read the result wraps ErrUnmeasurable and the stored total is
// left as it was.
func (t *DiskErrorTracker) Sample(ctx context.Context, topology models.Topology) (int64, error) {
	var (
		stats []models.DeviceStat
		err   error
	)
	switch topology {
	case models.RaspberryPiSingleDevice:
		stats, err = t.readSingle()
	default:
		stats, err = t.readAll(ctx)
	}
	if err != nil {
		return 0, err
	}

	var current int64
	for _, s := range stats {
		current += int64(s.Errors)
	}

	prev := t.prev
	t.prev = current
	if prev == notTracked || current < prev {
		return 0, nil
	}
	return current - prev, nil
}

func (t *DiskErrorTracker) readSingle() ([]models.DeviceStat, error) {
	stat, err := t.reader.ReadDevice(t.device)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmeasurable, err)
	}
	return []models.DeviceStat{stat}, nil
}

// readAll reads every block device and keeps the ones that parse. A device
// that cannot be read is logged and skipped.
func (t *DiskErrorTracker) readAll(ctx context.Context) ([]models.DeviceStat, error) {
	names, err := t.reader.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmeasurable, err)
	}

	stats := make([]models.DeviceStat, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stat, err := t.reader.ReadDevice(name)
		if err != nil {
			t.logger.Debug("Skipping unreadable block device",
				zap.String("device", name),
				zap.Error(err))
			continue
		}
		stats = append(stats, stat)
	}

	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: %d devices listed, none readable", ErrUnmeasurable, len(names))
	}
	return stats, nil
}
