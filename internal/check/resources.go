package check

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

const gib = 1 << 30

// Thresholds below which a run is likely to be slow.
const (
	MinMemAvailable = 1 * gib
	MinDiskFree     = 5 * gib
	MaxLoad1        = 2.0
)

// Resources is a snapshot of host capacity. Known is false when none of
// the measurements could be read.
type Resources struct {
	Known        bool
	CPUs         int
	MemAvailable uint64
	DiskFree     uint64
	Load1        float64
}

// SystemResources measures memory, free disk at path and the 1-minute load
// average. Measurements that fail are left at zero.
func SystemResources(ctx context.Context, path string) Resources {
	r := Resources{CPUs: runtime.NumCPU()}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		r.Known = true
		r.MemAvailable = vm.Available
	}
	if du, err := disk.UsageWithContext(ctx, path); err == nil {
		r.Known = true
		r.DiskFree = du.Free
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		r.Known = true
		r.Load1 = avg.Load1
	}
	return r
}

// Warnings lists the thresholds r falls outside of.
func (r Resources) Warnings() []string {
	if !r.Known {
		return nil
	}
	var out []string
	if r.MemAvailable < MinMemAvailable {
		out = append(out, fmt.Sprintf("Low memory: %.1f GiB available", float64(r.MemAvailable)/gib))
	}
	if r.DiskFree < MinDiskFree {
		out = append(out, fmt.Sprintf("Low disk space: %.1f GiB free", float64(r.DiskFree)/gib))
	}
	if r.Load1 >= MaxLoad1 {
		out = append(out, fmt.Sprintf("High load average: %.2f", r.Load1))
	}
	return out
}
