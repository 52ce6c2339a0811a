package station

import (
	"fmt"
	"strings"

	"github.com/AndreasAanestad/websync-station/internal/gateway"
	"github.com/AndreasAanestad/websync-station/internal/models"
)

// runUptimeSweepLocked probes every configured URL and accumulates
// failures in the sweep counter. The counter carries over between sweeps;
// once it clears the configured tolerance a warning goes out listing
// everything currently down and the counter starts over. Callers must
// hold s.mu.
func (s *Station) runUptimeSweepLocked() {
	for _, target := range s.URLs {
		if target == nil {
			continue
		}
		wasUp := target.LastStatus
		if err := gateway.Probe(target.URL); err != nil {
			target.LastStatus = false
			s.uptimeFails++
			s.addAudit(fmt.Sprintf("%s is down", target.Description))
			if wasUp {
				s.broadcast(models.FeedKindUptime, fmt.Sprintf("%s is down", target.Description))
			}
			continue
		}
		target.LastStatus = true
		if !wasUp {
			s.broadcast(models.FeedKindUptime, fmt.Sprintf("%s is up", target.Description))
		}
	}

	if s.uptimeFails <= s.Uptime.DowntimeTolerance {
		return
	}

	var down []string
	var body strings.Builder
	body.WriteString("Uptime check failed for the following URLs:\n")
	for _, target := range s.URLs {
		if target == nil || target.LastStatus {
			continue
		}
		body.WriteString(target.Description)
		body.WriteString("\n")
		down = append(down, target.Description)
	}
	lines := s.lastAuditLines(warningLogLines)
	fmt.Fprintf(&body, "\nThese are the last %d lines of the internal log:\n%s", len(lines), strings.Join(lines, "\n"))

	s.dispatchWarning(
		"Uptime check failed",
		body.String(),
		fmt.Sprintf("Uptime check failed. URLs down: %s", strings.Join(down, ", ")),
	)
	s.uptimeFails = 0
}

// RunUptimeNow sweeps every URL outside the schedule, with the same
// tolerance and warning behavior as a scheduled sweep.
func (s *Station) RunUptimeNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runUptimeSweepLocked()
}
