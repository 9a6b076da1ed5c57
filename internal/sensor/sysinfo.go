package sensor

import (
	"context"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// cpuSampleWindow is the back-to-back sampling window for CPU usage. The
// blocking read is why the CPU section runs in its own scheduler tier.
const cpuSampleWindow = 100 * time.Millisecond

const topProcessCount = 15

func timeSensor(context.Context) (map[string]interface{}, error) {
	now := time.Now()
	zone, offset := now.Zone()
	return map[string]interface{}{
		"unix_ms":       now.UnixMilli(),
		"rfc3339":       now.Format(time.RFC3339),
		"timezone":      zone,
		"utc_offset_s":  offset,
		"weekday":       now.Weekday().String(),
		"day_of_year":   now.YearDay(),
		"iso_week_year": isoWeek(now),
	}, nil
}

func isoWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

func cpuSensor(ctx context.Context) (map[string]interface{}, error) {
	total, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil {
		return nil, err
	}
	perCore, err := cpu.PercentWithContext(ctx, cpuSampleWindow, true)
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{
		"usage_percent": round2(first(total)),
		"per_core":      rounded(perCore),
		"logical_cores": len(perCore),
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		meta["model"] = infos[0].ModelName
		meta["mhz"] = infos[0].Mhz
		meta["physical_id"] = infos[0].PhysicalID
	}
	return meta, nil
}

func ramSensor(ctx context.Context) (map[string]interface{}, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	meta := map[string]interface{}{
		"total_bytes":     vm.Total,
		"used_bytes":      vm.Used,
		"available_bytes": vm.Available,
		"usage_percent":   round2(vm.UsedPercent),
	}
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		meta["swap_total_bytes"] = sw.Total
		meta["swap_used_bytes"] = sw.Used
	}
	return meta, nil
}

func storageSensor(ctx context.Context) (map[string]interface{}, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	drives := make([]interface{}, 0, len(partitions))
	for _, p := range partitions {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		drives = append(drives, map[string]interface{}{
			"device":        p.Device,
			"mountpoint":    p.Mountpoint,
			"fstype":        p.Fstype,
			"total_bytes":   usage.Total,
			"used_bytes":    usage.Used,
			"free_bytes":    usage.Free,
			"usage_percent": round2(usage.UsedPercent),
		})
	}
	return map[string]interface{}{"drives": drives}, nil
}

func networkSensor(ctx context.Context) (map[string]interface{}, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	interfaces := make([]interface{}, 0, len(counters))
	for _, c := range counters {
		interfaces = append(interfaces, map[string]interface{}{
			"name":         c.Name,
			"bytes_sent":   c.BytesSent,
			"bytes_recv":   c.BytesRecv,
			"packets_sent": c.PacketsSent,
			"packets_recv": c.PacketsRecv,
			"errors_in":    c.Errin,
			"errors_out":   c.Errout,
		})
	}
	return map[string]interface{}{"interfaces": interfaces}, nil
}

func systemSensor(ctx context.Context) (map[string]interface{}, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"hostname":         info.Hostname,
		"os":               info.OS,
		"platform":         info.Platform,
		"platform_version": info.PlatformVersion,
		"kernel_version":   info.KernelVersion,
		"arch":             info.KernelArch,
		"uptime_s":         info.Uptime,
		"boot_time_unix":   info.BootTime,
	}, nil
}

func processesSensor(ctx context.Context) (map[string]interface{}, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	type procSample struct {
		pid    int32
		name   string
		cpuPct float64
		memPct float32
	}

	samples := make([]procSample, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		memPct, _ := p.MemoryPercentWithContext(ctx)
		samples = append(samples, procSample{pid: p.Pid, name: name, cpuPct: cpuPct, memPct: memPct})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].cpuPct > samples[j].cpuPct })
	if len(samples) > topProcessCount {
		samples = samples[:topProcessCount]
	}

	top := make([]interface{}, 0, len(samples))
	for _, s := range samples {
		top = append(top, map[string]interface{}{
			"pid":            s.pid,
			"name":           s.name,
			"cpu_percent":    round2(s.cpuPct),
			"memory_percent": round2(float64(s.memPct)),
		})
	}
	return map[string]interface{}{
		"count": len(procs),
		"top":   top,
	}, nil
}

func first(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

func rounded(v []float64) []interface{} {
	out := make([]interface{}, len(v))
	for i, f := range v {
		out[i] = round2(f)
	}
	return out
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
