package station

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AndreasAanestad/websync-station/internal/models"
	"github.com/AndreasAanestad/websync-station/internal/utils"
)

func newTestStation(t *testing.T) *Station {
	t.Helper()
	s := newDefaults()
	s.Paths = utils.NewPaths(t.TempDir())
	return s
}

func auditMessages(s *Station) []string {
	out := make([]string, 0, len(s.auditLog))
	for _, entry := range s.auditLog {
		out = append(out, entry.Message)
	}
	return out
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "websync.config")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}
	return path
}

func TestWriteDefaultConfig_ProducesLoadableDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "websync.config")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("expected default config write to succeed, got %v", err)
	}

	s := newTestStation(t)
	s.ConfigFile = path
	if err := s.load(); err != nil {
		t.Fatalf("expected default config to load, got %v", err)
	}
	if s.Port != 5000 {
		t.Fatalf("expected default port 5000, got %d", s.Port)
	}
	if s.Uptime.IntervalMinutes != 60 || s.Uptime.DowntimeTolerance != 1 {
		t.Fatalf("unexpected default uptime settings: %+v", s.Uptime)
	}
	if s.Warnings.DailyMax != 4 {
		t.Fatalf("expected default daily warning cap of 4, got %d", s.Warnings.DailyMax)
	}
	if s.Auth.Secret == "" || s.Auth.JWTExpiry != 600 {
		t.Fatalf("unexpected default auth settings: %+v", s.Auth)
	}
	if !s.Active {
		t.Fatalf("expected station to be active after a successful load")
	}
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	s := newTestStation(t)
	s.ConfigFile = filepath.Join(t.TempDir(), "missing.config")

	if err := s.load(); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
	if s.Active {
		t.Fatalf("expected station to stay inactive after a failed load")
	}
	if s.Port != 5000 || s.Uptime.IntervalMinutes != 60 {
		t.Fatalf("expected defaults to survive a failed load")
	}
}

func TestLoad_AppliesDocument(t *testing.T) {
	root := t.TempDir()
	path := writeConfigFile(t, fmt.Sprintf(`{
  "paths": {"root_path": %q},
  "port": 8080,
  "backup_enabled": true,
  "uptime": {"interval_minutes": 30, "downtime_tolerance": 2},
  "urls": [{"description": "site", "url": "http://example.com/health"}],
  "backups": [{"description": "db", "url": "http://example.com/dump", "interval": "d", "time": 725, "max": 3}]
}`, root))

	s := newTestStation(t)
	s.ConfigFile = path
	if err := s.load(); err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	if s.Port != 8080 || !s.BackupEnabled {
		t.Fatalf("expected port and backup flag from the document, got %d / %v", s.Port, s.BackupEnabled)
	}
	if s.Uptime.IntervalMinutes != 30 || s.Uptime.DowntimeTolerance != 2 {
		t.Fatalf("unexpected uptime settings: %+v", s.Uptime)
	}
	if len(s.URLs) != 1 || s.URLs[0].Description != "site" {
		t.Fatalf("expected one uptime target, got %+v", s.URLs)
	}
	if len(s.Backups) != 1 || s.Backups[0].Time != 725 {
		t.Fatalf("expected one backup target, got %+v", s.Backups)
	}
	if s.Paths.RootPath != root {
		t.Fatalf("expected root path %q, got %q", root, s.Paths.RootPath)
	}
	if err := s.validate(); err != nil {
		t.Fatalf("expected loaded document to validate, got %v", err)
	}
}

func TestValidate_RejectsDuplicateDescriptions(t *testing.T) {
	s := newTestStation(t)
	s.Backups = []*models.BackupTarget{
		{Description: "site", URL: "http://example.com/a", Interval: "h"},
		{Description: "site", URL: "http://example.com/b", Interval: "d"},
	}

	err := s.validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected a duplicate description error, got %v", err)
	}
}

func TestValidate_RejectsUnusableFolderName(t *testing.T) {
	s := newTestStation(t)
	s.Backups = []*models.BackupTarget{
		{Description: "a/b", URL: "http://example.com/a", Interval: "h"},
	}

	if err := s.validate(); err == nil {
		t.Fatalf("expected an error for a description with a path separator")
	}
}

func TestValidate_RequiresRoutesWhenPostEnabled(t *testing.T) {
	s := newTestStation(t)
	s.Warnings.SendPostRequest = true
	s.Warnings.PostRequestRoutes = nil

	if err := s.validate(); err == nil {
		t.Fatalf("expected an error when post warnings are enabled without routes")
	}
}

func TestValidate_ToleratesUnknownInterval(t *testing.T) {
	s := newTestStation(t)
	s.Backups = []*models.BackupTarget{
		{Description: "site", URL: "http://example.com/a", Interval: "q"},
	}

	if err := s.validate(); err != nil {
		t.Fatalf("expected unknown interval codes to pass validation, got %v", err)
	}
	s.normalize()
}

func TestNormalize_ZeroUptimeIntervalDefaultsToHourly(t *testing.T) {
	s := newTestStation(t)
	s.Uptime.IntervalMinutes = 0

	s.normalize()
	if s.Uptime.IntervalMinutes != 60 {
		t.Fatalf("expected a zero sweep interval to default to 60, got %d", s.Uptime.IntervalMinutes)
	}
}

func TestSetBackupEnabled_PersistsToggle(t *testing.T) {
	s := newTestStation(t)
	s.ConfigFile = filepath.Join(t.TempDir(), "websync.config")

	s.SetBackupEnabled(true)
	if !s.IsBackupEnabled() {
		t.Fatalf("expected backup schedule to be enabled")
	}
	data, err := os.ReadFile(s.ConfigFile)
	if err != nil {
		t.Fatalf("expected toggle to persist the config, got %v", err)
	}
	if !strings.Contains(string(data), `"backup_enabled": true`) {
		t.Fatalf("expected persisted document to carry the enabled flag")
	}

	s.SetBackupEnabled(false)
	data, _ = os.ReadFile(s.ConfigFile)
	if !strings.Contains(string(data), `"backup_enabled": false`) {
		t.Fatalf("expected persisted document to carry the disabled flag")
	}
}

func TestStatusBackups_ReportsCountdownAndLastBackup(t *testing.T) {
	s := newTestStation(t)
	s.Backups = []*models.BackupTarget{
		{Description: "db", URL: "http://example.com/dump", Interval: "h", Time: 5, Max: 3},
	}

	statuses := s.StatusBackups()
	if len(statuses) != 1 {
		t.Fatalf("expected one status entry, got %d", len(statuses))
	}
	if statuses[0].NextRun == "" {
		t.Fatalf("expected a countdown for a known interval")
	}
	if statuses[0].LastBackup != nil {
		t.Fatalf("expected no last backup before the first record")
	}

	s.Backups[0].Records = append(s.Backups[0].Records, models.BackupRecord{Filename: "dump.sql"})
	statuses = s.StatusBackups()
	if statuses[0].Records != 1 || statuses[0].LastBackup == nil {
		t.Fatalf("expected the record to surface in the status view")
	}
}

func TestNewStationWithConfig_RejectsDuplicateDescriptions(t *testing.T) {
	root := t.TempDir()
	path := writeConfigFile(t, fmt.Sprintf(`{
  "paths": {"root_path": %q},
  "backups": [
    {"description": "site", "url": "http://example.com/a", "interval": "h"},
    {"description": "site", "url": "http://example.com/b", "interval": "d"}
  ]
}`, root))

	if _, err := NewStationWithConfig(path); err == nil {
		t.Fatalf("expected duplicate descriptions to be a fatal config error")
	}
}

func TestNewStationWithConfig_DeploysRootAndWelcomes(t *testing.T) {
	root := t.TempDir()
	path := writeConfigFile(t, fmt.Sprintf(`{"paths": {"root_path": %q}}`, root))

	s, err := NewStationWithConfig(path)
	if err != nil {
		t.Fatalf("expected station to start, got %v", err)
	}
	defer s.Shutdown()

	if !s.IsActive() {
		t.Fatalf("expected station to be active after loading the document")
	}
	for _, dir := range []string{root, filepath.Join(root, "logs"), filepath.Join(root, "config")} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected %s to exist after deploy, got %v", dir, err)
		}
	}
	entries := s.AuditEntries(1)
	if len(entries) != 1 || entries[0].Message != welcomeMessage {
		t.Fatalf("expected the welcome message on a fresh install, got %+v", entries)
	}
}
