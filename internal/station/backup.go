package station

import (
	"fmt"
	"time"

	"github.com/AndreasAanestad/websync-station/internal/gateway"
	"github.com/AndreasAanestad/websync-station/internal/models"
)

// runDueBackupsLocked collects every target due at time t and then runs
// them one at a time. Collection happens first so a slow download cannot
// shift later targets out of their due minute. Callers must hold s.mu.
func (s *Station) runDueBackupsLocked(t time.Time) {
	var due []*models.BackupTarget
	for _, target := range s.Backups {
		if target == nil {
			continue
		}
		if isDue(target.Interval, target.Time, t) {
			due = append(due, target)
		}
	}
	for _, target := range due {
		_ = s.attemptBackup(target)
	}
}

// attemptBackup pulls one target's artifact into its backup folder,
// records it in the retention log and evicts anything over the cap. A
// failed pull is audited and handed to the warning dispatcher. Callers
// must hold s.mu.
func (s *Station) attemptBackup(target *models.BackupTarget) error {
	s.safeLog(fmt.Sprintf("Attempting backup of %s", target.URL))
	folder := s.Paths.BackupDir(target.Description)
	filename, size, err := gateway.Download(target.URL, folder, s.outboundBearer())
	if err != nil {
		message := fmt.Sprintf("Backup failed for URL: %s. Error: %v", target.URL, err)
		s.addAudit(message)
		s.dispatchWarning("Backup failed", message, message)
		return err
	}

	s.safeLog(fmt.Sprintf("It worked: %s", filename))
	target.Records = append(target.Records, models.BackupRecord{
		Filename:  filename,
		Timestamp: time.Now().UTC(),
		Size:      size,
	})
	s.persistRetention(target)
	s.broadcast(models.FeedKindBackup, fmt.Sprintf("Backup completed for %s: %s", target.Description, filename))
	s.evictOverLimit(target)
	return nil
}

// RunBackupNow triggers one target's backup outside its schedule. The
// run takes the same path as a scheduled one, warnings included.
func (s *Station) RunBackupNow(description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.targetByDescription(description)
	if target == nil {
		return fmt.Errorf("%w %q", ErrUnknownTarget, description)
	}
	return s.attemptBackup(target)
}
