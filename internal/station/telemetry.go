package station

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/AndreasAanestad/websync-station/internal/models"
)

const telemetryInterval = 5 * time.Second

// StartTelemetry launches a background sampler that refreshes the host
// metrics shown in the console status view.
func (s *Station) StartTelemetry() {
	s.telemetryMu.Lock()
	if s.telemetryStop != nil {
		s.telemetryMu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.telemetryStop = stop
	s.telemetryMu.Unlock()

	s.telemetryWG.Add(1)
	go func() {
		defer s.telemetryWG.Done()
		ticker := time.NewTicker(telemetryInterval)
		defer ticker.Stop()
		ctx := context.Background()
		s.refreshTelemetry(ctx)
		for {
			select {
			case <-ticker.C:
				s.refreshTelemetry(ctx)
			case <-stop:
				return
			}
		}
	}()
}

// StopTelemetry stops the background sampler and waits for shutdown.
func (s *Station) StopTelemetry() {
	s.telemetryMu.Lock()
	stop := s.telemetryStop
	s.telemetryStop = nil
	s.telemetryMu.Unlock()
	if stop != nil {
		close(stop)
	}
	s.telemetryWG.Wait()
}

func (s *Station) refreshTelemetry(ctx context.Context) {
	snapshot := s.collectTelemetry(ctx)
	if snapshot == nil {
		return
	}
	s.telemetryMu.Lock()
	s.telemetry = snapshot
	s.telemetryMu.Unlock()
}

func (s *Station) collectTelemetry(ctx context.Context) *models.SystemTelemetry {
	timesStats, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(timesStats) == 0 {
		return nil
	}
	total := cpuTotal(timesStats[0])
	idle := timesStats[0].Idle + timesStats[0].Iowait
	deltaTotal, deltaIdle, hasPrev := s.updateCPUSample(total, idle)

	var cpuPercent float64
	if hasPrev && deltaTotal > 0 {
		used := deltaTotal - deltaIdle
		if used < 0 {
			used = 0
		}
		cpuPercent = clampFloat((used/deltaTotal)*100, 0, 100)
	}

	memoryStats, _ := mem.VirtualMemoryWithContext(ctx)
	var memPercent float64
	var memUsed, memTotal uint64
	if memoryStats != nil {
		memPercent = clampFloat(memoryStats.UsedPercent, 0, 100)
		memUsed = memoryStats.Used
		memTotal = memoryStats.Total
	}

	rootPath := "/"
	if s.Paths != nil && strings.TrimSpace(s.Paths.RootPath) != "" {
		rootPath = s.Paths.RootPath
	}
	diskStats, _ := disk.UsageWithContext(ctx, rootPath)
	var diskPercent float64
	var diskUsed, diskTotal uint64
	if diskStats != nil {
		diskPercent = clampFloat(diskStats.UsedPercent, 0, 100)
		diskUsed = diskStats.Used
		diskTotal = diskStats.Total
	}

	loadStats, _ := load.AvgWithContext(ctx)
	var load1 float64
	if loadStats != nil {
		load1 = loadStats.Load1
	}

	hostInfo, _ := host.InfoWithContext(ctx)
	var uptimeSeconds uint64
	if hostInfo != nil {
		uptimeSeconds = hostInfo.Uptime
	}

	return &models.SystemTelemetry{
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		MemoryUsed:    memUsed,
		MemoryTotal:   memTotal,
		DiskPercent:   diskPercent,
		DiskUsed:      diskUsed,
		DiskTotal:     diskTotal,
		Load1:         load1,
		HostUptime:    uptimeSeconds,
		HealthPercent: computeHealth(cpuPercent, memPercent, diskPercent),
		SampledAt:     time.Now(),
	}
}

func cpuTotal(stat cpu.TimesStat) float64 {
	return stat.User + stat.System + stat.Nice + stat.Idle + stat.Iowait + stat.Irq + stat.Softirq + stat.Steal + stat.Guest + stat.GuestNice
}

func (s *Station) updateCPUSample(total, idle float64) (float64, float64, bool) {
	s.telemetryMu.Lock()
	defer s.telemetryMu.Unlock()
	deltaTotal := total - s.lastCPUTotal
	deltaIdle := idle - s.lastCPUIdle
	hasPrev := s.lastCPUTotal > 0
	s.lastCPUTotal = total
	s.lastCPUIdle = idle
	return deltaTotal, deltaIdle, hasPrev
}

func computeHealth(cpu, mem, disk float64) float64 {
	maxUsage := 0.0
	for _, v := range []float64{cpu, mem, disk} {
		if v <= 0 {
			continue
		}
		if v > maxUsage {
			maxUsage = v
		}
	}
	if maxUsage == 0 {
		return 100
	}
	return clampFloat(100-maxUsage, 0, 100)
}

func clampFloat(val, min, max float64) float64 {
	if math.IsNaN(val) {
		return min
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// TelemetrySnapshot returns the last sampled host metrics, or nil before
// the first sample lands.
func (s *Station) TelemetrySnapshot() *models.SystemTelemetry {
	s.telemetryMu.RLock()
	defer s.telemetryMu.RUnlock()
	if s.telemetry == nil {
		return nil
	}
	copy := *s.telemetry
	return &copy
}
