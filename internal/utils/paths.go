// Package utils contains utility types for logging, filename handling, and
// filesystem path management used throughout WebSync Station.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves and manages filesystem locations used by the station.
// Backup folders live directly under the root, one per target description.
type Paths struct {
	RootPath string `json:"root_path"`
}

// NewPaths constructs Paths rooted at the specified directory.
func NewPaths(rootPath string) *Paths {
	return &Paths{RootPath: rootPath}
}

// LogsDir returns the diagnostic logs directory.
func (p *Paths) LogsDir() string {
	return filepath.Join(p.RootPath, "logs")
}

// LogFile returns the main station log file path.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogsDir(), "websync.log")
}

// ConfigDir returns the application configuration directory.
func (p *Paths) ConfigDir() string {
	return filepath.Join(p.RootPath, "config")
}

// UsersFile returns the path to the console account database file.
func (p *Paths) UsersFile() string {
	return filepath.Join(p.ConfigDir(), "users.json")
}

// AuditLogFile returns the path to the station-wide audit log snapshot.
func (p *Paths) AuditLogFile() string {
	return filepath.Join(p.RootPath, "internal_log.json")
}

// BackupDir returns the storage folder for one backup target.
func (p *Paths) BackupDir(description string) string {
	return filepath.Join(p.RootPath, description)
}

// RetentionLogFile returns the retention log path inside a target's folder.
func (p *Paths) RetentionLogFile(description string) string {
	return filepath.Join(p.BackupDir(description), "log.json")
}

// CheckRoot verifies that core directories exist under the root path.
func (p *Paths) CheckRoot() bool {
	dirs := []string{p.RootPath, p.LogsDir(), p.ConfigDir()}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// DeployRoot creates the root directory structure (idempotent).
func (p *Paths) DeployRoot(logger *Logger) {
	mkdirLog := func(path, label string) {
		_ = os.MkdirAll(path, os.ModePerm)
		if logger != nil {
			logger.Write(fmt.Sprintf("Creating %s path: %s", label, path))
		}
	}

	mkdirLog(p.RootPath, "root")
	mkdirLog(p.LogsDir(), "logs")
	mkdirLog(p.ConfigDir(), "config")
}
