package station

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AndreasAanestad/websync-station/internal/models"
	"github.com/AndreasAanestad/websync-station/internal/utils"
)

// maxEvictionsPerPass bounds how many delete attempts one retention pass
// makes, so catching up after a long outage cannot stall a tick.
const maxEvictionsPerPass = 6

// loadRetentionLogs restores each target's retention log from its backup
// folder. A missing log is a fresh target and stays silent; a corrupt one
// is logged and rebuilt from the next successful backup.
func (s *Station) loadRetentionLogs() {
	for _, target := range s.Backups {
		if target == nil {
			continue
		}
		data, err := os.ReadFile(s.Paths.RetentionLogFile(target.Description))
		if err != nil {
			if !os.IsNotExist(err) {
				s.safeLog(fmt.Sprintf("Could not load retention log for %s: %v", target.Description, err))
			}
			target.Records = nil
			continue
		}
		var snapshot models.RetentionSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			s.safeLog(fmt.Sprintf("Could not parse retention log for %s: %v", target.Description, err))
			target.Records = nil
			continue
		}
		target.Records = snapshot.Entries
	}
}

// persistRetention writes a target's retention log into its backup
// folder. Write failures are logged; the in-memory records stay
// authoritative for the session.
func (s *Station) persistRetention(target *models.BackupTarget) {
	data, err := json.MarshalIndent(models.RetentionSnapshot{Entries: target.Records}, "", "  ")
	if err != nil {
		s.safeLog(fmt.Sprintf("Failed to encode retention log for %s: %v", target.Description, err))
		return
	}
	if err := os.WriteFile(s.Paths.RetentionLogFile(target.Description), data, 0644); err != nil {
		s.safeLog(fmt.Sprintf("Failed to write retention log for %s: %v", target.Description, err))
	}
}

// evictOverLimit deletes the oldest artifacts of a target until it is
// back at its retention cap. The overshoot is fixed up front, at most
// maxEvictionsPerPass deletes are attempted per pass, and a record whose
// file cannot be deleted is skipped so one stuck file never pins newer
// ones. The log is persisted after every removal. Callers must hold s.mu.
func (s *Station) evictOverLimit(target *models.BackupTarget) {
	overLimit := len(target.Records) - target.Max
	if overLimit <= 0 {
		return
	}
	s.safeLog(fmt.Sprintf("There are %d backups over limit", overLimit))

	idx := 0
	for j := 0; j < overLimit && j < maxEvictionsPerPass && idx < len(target.Records); j++ {
		record := target.Records[idx]
		if err := s.deleteBackupFile(target.Description, record.Filename); err != nil {
			s.safeLog(fmt.Sprintf("file delete fail: %v", err))
			idx++
			continue
		}
		s.safeLog("file delete success")
		target.Records = append(target.Records[:idx], target.Records[idx+1:]...)
		s.persistRetention(target)
	}
}

// deleteBackupFile removes one artifact from a target's backup folder,
// verifying every step so a bad retention record cannot reach outside
// the folder or remove a directory.
func (s *Station) deleteBackupFile(description, filename string) error {
	folder := s.Paths.BackupDir(description)
	info, err := os.Stat(folder)
	if err != nil {
		return fmt.Errorf("Folder `%s` does not exist", folder)
	}
	if !info.IsDir() {
		return fmt.Errorf("`%s` is not a directory", folder)
	}
	path, err := utils.SecureJoin(folder, filename)
	if err != nil {
		return err
	}
	fileInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("File `%s` not found in `%s`", filename, folder)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("`%s` is a directory, not a file", filename)
	}
	return os.Remove(path)
}
