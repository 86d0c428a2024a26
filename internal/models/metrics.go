// Package models defines the sample and snapshot structures shared by the
// collectors, the scheduler and the table renderer.
package models

import "time"

// CPUSample holds the aggregate "cpu" counters from /proc/stat, in clock ticks.
type CPUSample struct {
	User    uint64
	Nice    uint64
	System  uint64
	Idle    uint64
	IOWait  uint64
	IRQ     uint64
	SoftIRQ uint64
	Steal   uint64
}

// Total returns the sum of all eight counters.
func (s CPUSample) Total() uint64 {
	return s.User + s.Nice + s.System + s.Idle + s.IOWait + s.IRQ + s.SoftIRQ + s.Steal
}

// Regressed reports whether any counter in next is lower than in s, which
// happens after a counter reset or wraparound.
func (s CPUSample) Regressed(next CPUSample) bool {
	return next.User < s.User || next.Nice < s.Nice || next.System < s.System ||
		next.Idle < s.Idle || next.IOWait < s.IOWait || next.IRQ < s.IRQ ||
		next.SoftIRQ < s.SoftIRQ || next.Steal < s.Steal
}

// MemorySample holds the /proc/meminfo fields used for saturation, in kB.
type MemorySample struct {
	Total   uint64
	Free    uint64
	Buffers uint64
	Cached  uint64
}

// DeviceStat is one block device's /sys/block/<dev>/stat record.
type DeviceStat struct {
	Name   string
	Fields []uint64
	// Errors is the device's cumulative I/O error count as selected by the
	// configured error source.
	Errors uint64
}

// Topology selects which block devices the disk tracker reads.
type Topology int

const (
	// GenericAllBlockDevices reads every entry under /sys/block.
	GenericAllBlockDevices Topology = iota
	// RaspberryPiSingleDevice reads only the SD card device.
	RaspberryPiSingleDevice
)

func (t Topology) String() string {
	switch t {
	case RaspberryPiSingleDevice:
		return "raspberry-pi"
	default:
		return "generic"
	}
}

// Reading is the outcome of one metric for one tick.
type Reading[T any] struct {
	Value T
	Err   error
}

// OK reports whether the reading carries a usable value.
func (r Reading[T]) OK() bool { return r.Err == nil }

// Snapshot is one tick's worth of metrics, i.e. one table row.
type Snapshot struct {
	Timestamp  time.Time
	Topology   Topology
	CPU        Reading[float64]
	Memory     Reading[float64]
	DiskErrors Reading[int64]
}

// Empty reports whether no metric could be read during the tick.
func (s Snapshot) Empty() bool {
	return !s.CPU.OK() && !s.Memory.OK() && !s.DiskErrors.OK()
}
