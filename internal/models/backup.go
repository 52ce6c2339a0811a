package models

import "time"

// BackupRecord is one retained artifact in a target's retention log.
// Size is the number of bytes actually written to disk for the download.
type BackupRecord struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

// RetentionSnapshot is the on-disk shape of a backup folder's log.json.
type RetentionSnapshot struct {
	Entries []BackupRecord `json:"entries"`
}

// BackupTarget is one configured pull job: where to fetch the artifact,
// where a retained copy can be pushed back, and when the pull is due.
// Interval is one of "h", "d", "w" or "m"; Time is the offset in minutes
// within that period. Max bounds how many records are retained.
type BackupTarget struct {
	Description string `json:"description" validate:"required"`
	URL         string `json:"url" validate:"required,url"`
	Restore     string `json:"restore" validate:"omitempty,url"`
	Max         int    `json:"max" validate:"min=0"`
	Interval    string `json:"interval" validate:"required"`
	Time        int    `json:"time" validate:"min=0"`

	// Records mirrors the target's log.json. Loaded at startup, persisted
	// after every mutation. Not part of the config document.
	Records []BackupRecord `json:"-"`
}

// UptimeTarget is one polled liveness URL.
type UptimeTarget struct {
	Description string `json:"description" validate:"required"`
	URL         string `json:"url" validate:"required,url"`

	// LastStatus holds the most recent probe outcome. Not persisted;
	// a fresh boot starts every target as down until the first sweep.
	LastStatus bool `json:"-"`
}
