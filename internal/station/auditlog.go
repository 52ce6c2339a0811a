package station

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/AndreasAanestad/websync-station/internal/models"
)

// warningLogLines is how many recent audit lines ride along in outgoing
// warning payloads. The trail itself is append-only and unbounded for the
// process lifetime.
const warningLogLines = 50

// addAudit records a station event in the audit trail, mirrors it to the
// station log and pushes it to console feed subscribers. The trail is
// persisted after every mutation so a crash never loses events. Callers
// must hold s.mu.
func (s *Station) addAudit(message string) {
	s.auditLog = append(s.auditLog, models.AuditEntry{
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	s.persistAudit()
	s.safeLog(message)
	s.broadcast(models.FeedKindAudit, message)
}

// persistAudit writes the audit trail snapshot to disk. Failures are
// logged and otherwise ignored; the in-memory trail stays authoritative
// for the current session.
func (s *Station) persistAudit() {
	data, err := json.MarshalIndent(models.AuditSnapshot{Entries: s.auditLog}, "", "  ")
	if err != nil {
		s.safeLog(fmt.Sprintf("Failed to encode audit log: %v", err))
		return
	}
	if err := os.WriteFile(s.Paths.AuditLogFile(), data, 0644); err != nil {
		s.safeLog(fmt.Sprintf("Failed to persist audit log: %v", err))
	}
}

// importAuditLog restores the audit trail from the previous session. A
// missing file is a fresh install and stays silent; a corrupt one is
// logged and replaced on the next write.
func (s *Station) importAuditLog() {
	data, err := os.ReadFile(s.Paths.AuditLogFile())
	if err != nil {
		if !os.IsNotExist(err) {
			s.safeLog(fmt.Sprintf("Failed to read audit log: %v", err))
		}
		return
	}
	var snapshot models.AuditSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.safeLog(fmt.Sprintf("Could not parse audit log, starting fresh: %v", err))
		return
	}
	s.auditLog = snapshot.Entries
}

// lastAuditLines renders up to limit audit entries as plain text lines,
// most recent first, for inclusion in warning messages.
func (s *Station) lastAuditLines(limit int) []string {
	n := len(s.auditLog)
	if limit <= 0 || limit > n {
		limit = n
	}
	lines := make([]string, 0, limit)
	for i := n - 1; i >= 0 && len(lines) < limit; i-- {
		entry := s.auditLog[i]
		lines = append(lines, fmt.Sprintf("%s - %s", entry.Timestamp.Format(time.RFC3339), entry.Message))
	}
	return lines
}
