package models

import "time"

// AuditEntry is one operational event in the station's audit trail. The
// audit trail is data, not diagnostics: its recent lines travel inside
// warning payloads and are served to the console.
type AuditEntry struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditSnapshot is the on-disk shape of internal_log.json.
type AuditSnapshot struct {
	Entries []AuditEntry `json:"entries"`
}
