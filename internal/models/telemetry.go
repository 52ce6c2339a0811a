package models

import "time"

// SystemTelemetry captures host-level resource usage sampled for the
// console status payload. HealthPercent is 100 minus the worst of the
// usage percentages, clamped to [0,100].
type SystemTelemetry struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsed    uint64    `json:"memory_used_bytes"`
	MemoryTotal   uint64    `json:"memory_total_bytes"`
	DiskPercent   float64   `json:"disk_percent"`
	DiskUsed      uint64    `json:"disk_used_bytes"`
	DiskTotal     uint64    `json:"disk_total_bytes"`
	Load1         float64   `json:"load_1"`
	HostUptime    uint64    `json:"host_uptime_seconds"`
	HealthPercent float64   `json:"health_percent"`
	SampledAt     time.Time `json:"sampled_at"`
}
