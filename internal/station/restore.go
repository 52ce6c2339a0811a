package station

import (
	"fmt"
	"strings"

	"github.com/AndreasAanestad/websync-station/internal/gateway"
	"github.com/AndreasAanestad/websync-station/internal/utils"
)

// RestoreBackup pushes one retained artifact back to a target's restore
// route. Only artifacts present in the retention log can be restored,
// and the outcome lands in the audit trail either way.
func (s *Station) RestoreBackup(description, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.targetByDescription(description)
	if target == nil {
		return fmt.Errorf("%w %q", ErrUnknownTarget, description)
	}
	if strings.TrimSpace(target.Restore) == "" {
		return fmt.Errorf("%w for %s", ErrNoRestoreRoute, description)
	}

	known := false
	for _, record := range target.Records {
		if record.Filename == filename {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w %q for %s", ErrUnknownRecord, filename, description)
	}

	path, err := utils.SecureJoin(s.Paths.BackupDir(description), filename)
	if err != nil {
		return err
	}

	if err := gateway.Restore(target.Restore, path, s.outboundBearer()); err != nil {
		s.addAudit(fmt.Sprintf("Failed to restore file %s from %s: %v", filename, description, err))
		return err
	}
	s.addAudit(fmt.Sprintf("Successfully restored file %s from %s", filename, description))
	return nil
}
