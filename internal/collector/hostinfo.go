// Host description logged once at startup so a captured table can be tied
// back to the machine and kernel it came from.
package collector

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
)

// HostInfo identifies the sampled machine.
type HostInfo struct {
	Hostname      string
	Platform      string
	KernelVersion string
	Arch          string
	Uptime        time.Duration
}

// DescribeHost gathers host identification through gopsutil. Fields that
// cannot be determined are left empty.
func DescribeHost(ctx context.Context) (HostInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostInfo{}, err
	}
	return HostInfo{
		Hostname:      info.Hostname,
		Platform:      info.Platform + " " + info.PlatformVersion,
		KernelVersion: info.KernelVersion,
		Arch:          info.KernelArch,
		Uptime:        time.Duration(info.Uptime) * time.Second,
	}, nil
}

// Fields returns the description as zap fields.
func (h HostInfo) Fields() []zap.Field {
	return []zap.Field{
		zap.String("hostname", h.Hostname),
		zap.String("platform", h.Platform),
		zap.String("kernel", h.KernelVersion),
		zap.String("arch", h.Arch),
		zap.Duration("uptime", h.Uptime),
	}
}
