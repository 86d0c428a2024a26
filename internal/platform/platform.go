// Package platform identifies the hardware the sampler runs on so the disk
// tracker can pick which block devices to read.
//
// A Raspberry Pi boots from a single SD card (mmcblk0); every other machine
// is treated as a generic Linux host whose devices are all enumerated.
package platform

import (
	"bytes"
	"context"
	"io/fs"

	"github.com/Guliveer/hoststat/internal/models"
)

// raspberryPiMarker is the model string printed by the Pi firmware.
var raspberryPiMarker = []byte("Raspberry Pi")

// identificationSources are checked in order. Older Pi kernels print the
// model in cpuinfo; newer ones only expose it in the device tree.
var identificationSources = []string{
	"proc/cpuinfo",
	"proc/device-tree/model",
}

// Classifier detects the device topology from platform identification files.
type Classifier struct {
	fsys fs.FS
}

// New creates a classifier reading identification files under fsys.
func New(fsys fs.FS) *Classifier {
	return &Classifier{fsys: fsys}
}

// Classify returns RaspberryPiSingleDevice if any identification source
// contains the Raspberry Pi marker, and GenericAllBlockDevices otherwise.
// Unreadable sources count as "no marker"; Classify never fails.
func (c *Classifier) Classify(_ context.Context) models.Topology {
	for _, name := range identificationSources {
		data, err := fs.ReadFile(c.fsys, name)
		if err != nil {
			continue
		}
		if bytes.Contains(data, raspberryPiMarker) {
			return models.RaspberryPiSingleDevice
		}
	}
	return models.GenericAllBlockDevices
}
