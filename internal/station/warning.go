package station

import (
	"fmt"
	"time"

	"github.com/AndreasAanestad/websync-station/internal/gateway"
	"github.com/AndreasAanestad/websync-station/internal/mailer"
	"github.com/AndreasAanestad/websync-station/internal/models"
)

// dispatchWarning pushes one warning through every enabled channel,
// bounded by the daily quota. The quota is checked before any channel:
// once today's allowance is spent only the audit trail records the
// overflow, whether or not channels are enabled. The counter moves by
// one per dispatch no matter how many channels or routes fired, and a
// channel counts as used the moment it is attempted, so a failing SMTP
// server cannot burn through the quota with endless retries. Reports
// whether a dispatch was attempted. Callers must hold s.mu.
func (s *Station) dispatchWarning(subject, emailBody, webhookDescription string) bool {
	if s.warningsSent >= s.Warnings.DailyMax {
		s.addAudit("Warning limit exceeded")
		return false
	}

	attempted := false

	if s.Warnings.UseEmail {
		attempted = true
		if err := mailer.Send(s.SMTP, s.Warnings.Email, subject, emailBody); err != nil {
			s.safeLog(fmt.Sprintf("Failed to send warning email: %v", err))
		} else {
			s.safeLog("Warning email sent successfully!")
		}
	}

	if s.Warnings.SendPostRequest {
		attempted = true
		payload := models.WarningPayload{
			Time:        time.Now().UTC().Format(time.RFC3339),
			Description: webhookDescription,
			Logs:        s.lastAuditLines(warningLogLines),
		}
		bearer := s.outboundBearer()
		for _, route := range s.Warnings.PostRequestRoutes {
			if err := gateway.PostWarning(route, bearer, payload); err != nil {
				s.safeLog(fmt.Sprintf("Failed to send POST warning to %s: %v", route, err))
			} else {
				s.safeLog(fmt.Sprintf("Successfully sent POST warning to %s", route))
			}
		}
	}

	if attempted {
		s.warningsSent++
		s.broadcast(models.FeedKindWarning, webhookDescription)
	}
	return attempted
}
