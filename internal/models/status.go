package models

import "time"

// BackupStatus is the console view of one backup target.
type BackupStatus struct {
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Interval    string     `json:"interval"`
	Time        int        `json:"time"`
	Max         int        `json:"max"`
	Records     int        `json:"records"`
	NextRun     string     `json:"next_run"`
	LastBackup  *time.Time `json:"last_backup,omitempty"`
}

// UptimeStatus is the console view of one polled URL.
type UptimeStatus struct {
	Description string `json:"description"`
	URL         string `json:"url"`
	Up          bool   `json:"up"`
}

// FeedEvent is one websocket message pushed to connected consoles.
type FeedEvent struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	FeedKindAudit   = "audit"
	FeedKindWarning = "warning"
	FeedKindUptime  = "uptime"
	FeedKindBackup  = "backup"
)
