package platform

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a point-in-time host health snapshot, surfaced for the
// external UI collaborator alongside the control core's peer Stats()
// (spec.md §9 supplemented "Peer health/stats surface"). Grounded on
// badu-term/playground/keys/main.go's use of gopsutil's cpu/mem packages
// to print processor/memory figures during its demo run loop, generalized
// from a debug printout into a reusable snapshot type.
type HostStats struct {
	CPUPercent    []float64
	MemUsedPercent float64
	MemTotal      uint64
	Uptime        time.Duration
}

// CollectHostStats gathers a HostStats snapshot. sampleWindow bounds how
// long cpu.PercentWithContext spends sampling; the caller typically picks
// something short (e.g. 200ms) since this is meant for an on-demand
// status readout, not a tight polling loop.
func CollectHostStats(ctx context.Context, sampleWindow time.Duration) (HostStats, error) {
	percents, err := cpu.PercentWithContext(ctx, sampleWindow, true)
	if err != nil {
		return HostStats{}, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostStats{}, err
	}
	uptimeSecs, err := host.UptimeWithContext(ctx)
	if err != nil {
		return HostStats{}, err
	}
	return HostStats{
		CPUPercent:     percents,
		MemUsedPercent: vm.UsedPercent,
		MemTotal:       vm.Total,
		Uptime:         time.Duration(uptimeSecs) * time.Second,
	}, nil
}
