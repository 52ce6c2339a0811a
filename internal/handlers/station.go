package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/AndreasAanestad/websync-station/internal/middleware"
	"github.com/AndreasAanestad/websync-station/internal/station"
	"github.com/AndreasAanestad/websync-station/internal/version"

	"github.com/gin-gonic/gin"
)

// StationHandlers exposes the daemon to the console: status, audit
// trail, retention records and the manual triggers.
type StationHandlers struct {
	station *station.Station
	hub     *middleware.Hub
}

func NewStationHandlers(st *station.Station, hub *middleware.Hub) *StationHandlers {
	return &StationHandlers{station: st, hub: hub}
}

// APIStatus returns the full console snapshot in one payload.
func (h *StationHandlers) APIStatus(c *gin.Context) {
	warningsSent, dailyMax := h.station.WarningQuota()
	pfActive, pfPort, pfIP, pfErr := h.station.PortForwardStatus()

	feedClients := 0
	if h.hub != nil {
		feedClients = h.hub.GetClientCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"active":         h.station.IsActive(),
		"version":        version.String(),
		"backup_enabled": h.station.IsBackupEnabled(),
		"warnings": gin.H{
			"sent":      warningsSent,
			"daily_max": dailyMax,
		},
		"urls":      h.station.StatusURLs(),
		"backups":   h.station.StatusBackups(),
		"telemetry": h.station.TelemetrySnapshot(),
		"port_forward": gin.H{
			"active":        pfActive,
			"external_port": pfPort,
			"external_ip":   pfIP,
			"last_error":    pfErr,
		},
		"feed_clients": feedClients,
	})
}

// APIAudit returns audit entries, newest first. ?limit= trims the
// answer; without it the whole trail comes back.
func (h *StationHandlers) APIAudit(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	c.JSON(http.StatusOK, gin.H{"entries": h.station.AuditEntries(limit)})
}

// APIBackups lists every backup target with countdown and record count.
func (h *StationHandlers) APIBackups(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"backups": h.station.StatusBackups()})
}

// APIBackupRecords lists the retention log for one target.
func (h *StationHandlers) APIBackupRecords(c *gin.Context) {
	description := c.Param("description")
	records, err := h.station.RecordsFor(description)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"description": description,
		"records":     records,
	})
}

// APIRunBackup triggers one target's backup outside its schedule and
// waits for the outcome.
func (h *StationHandlers) APIRunBackup(c *gin.Context) {
	description := c.Param("description")
	if err := h.station.RunBackupNow(description); err != nil {
		if errors.Is(err, station.ErrUnknownTarget) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

type RestoreRequest struct {
	Description string `json:"description" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
}

// APIRestore pushes one retained artifact back to its target.
func (h *StationHandlers) APIRestore(c *gin.Context) {
	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	err := h.station.RestoreBackup(req.Description, req.Filename)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "restored"})
	case errors.Is(err, station.ErrUnknownTarget), errors.Is(err, station.ErrUnknownRecord):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, station.ErrNoRestoreRoute):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// APIRunUptime runs a liveness sweep immediately. The sweep shares the
// scheduled path, tolerance counting and warnings included.
func (h *StationHandlers) APIRunUptime(c *gin.Context) {
	h.station.RunUptimeNow()
	c.JSON(http.StatusOK, gin.H{
		"status": "completed",
		"urls":   h.station.StatusURLs(),
	})
}

type ScheduleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// APISchedule toggles the backup schedule and persists the change.
func (h *StationHandlers) APISchedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	h.station.SetBackupEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"backup_enabled": h.station.IsBackupEnabled()})
}
