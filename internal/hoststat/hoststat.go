// Package hoststat samples load on the kiosk machine for status output.
package hoststat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// cpuSampleWindow is how long CPU usage is measured for one sample.
const cpuSampleWindow = 200 * time.Millisecond

// Stats is a point-in-time host sample.
type Stats struct {
	Hostname      string
	Uptime        time.Duration
	Load1         float64
	Load5         float64
	MemoryUsedPct float64
	CPUPercent    float64
}

// Sample collects host stats. Individual probes that fail leave their field
// zero; the joined error names each failure.
func Sample(ctx context.Context) (Stats, error) {
	var (
		stats Stats
		errs  []error
	)
	if info, err := host.InfoWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		stats.Hostname = info.Hostname
		stats.Uptime = time.Duration(info.Uptime) * time.Second
	}
	if avg, err := load.AvgWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		stats.Load1 = avg.Load1
		stats.Load5 = avg.Load5
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		stats.MemoryUsedPct = vm.UsedPercent
	}
	if pct, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false); err != nil {
		errs = append(errs, err)
	} else if len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	return stats, errors.Join(errs...)
}

// Summary renders the sample as a short one-line description.
func (s Stats) Summary() string {
	var parts []string
	if s.Hostname != "" {
		parts = append(parts, s.Hostname)
	}
	parts = append(parts,
		"load "+formatFloat(s.Load1),
		"mem "+formatFloat(s.MemoryUsedPct)+"%",
		"cpu "+formatFloat(s.CPUPercent)+"%",
	)
	if s.Uptime > 0 {
		parts = append(parts, "up "+s.Uptime.Truncate(time.Minute).String())
	}
	return strings.Join(parts, ", ")
}
