// Package station implements the WebSync Station core: minute-granularity
// scheduling of backup pulls with bounded retention, uptime polling with
// throttled warnings, the bearer token policy for outbound calls, and the
// audit trail served to the operator console.
package station

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/AndreasAanestad/websync-station/internal/mailer"
	"github.com/AndreasAanestad/websync-station/internal/models"
	"github.com/AndreasAanestad/websync-station/internal/token"
	"github.com/AndreasAanestad/websync-station/internal/utils"
)

const welcomeMessage = "Welcome to WebSync Station. If this is your first time using WWS remember to edit the websync.config file and then restart the app."

// Sentinel errors let the console map request mistakes to 4xx answers
// instead of treating them as transfer failures.
var (
	ErrUnknownTarget  = errors.New("unknown backup target")
	ErrUnknownRecord  = errors.New("unknown backup record")
	ErrNoRestoreRoute = errors.New("no restore route configured")
)

// UptimeSettings controls the liveness sweep cadence and how many
// cumulative probe failures are tolerated before a warning fires.
type UptimeSettings struct {
	IntervalMinutes   int `json:"interval_minutes" validate:"min=0"`
	DowntimeTolerance int `json:"downtime_tolerance" validate:"min=0"`
}

// WarningSettings selects the warning channels and the daily quota.
// DailyMax bounds how many warnings dispatch per UTC day; 0 disables
// dispatch entirely.
type WarningSettings struct {
	UseEmail          bool     `json:"use_email"`
	SendPostRequest   bool     `json:"send_post_request"`
	PostRequestRoutes []string `json:"post_request_routes"`
	Email             string   `json:"email"`
	DailyMax          int      `json:"daily_max" validate:"min=0"`
}

// AuthSettings holds the outbound bearer policy: a static token used
// verbatim when set, otherwise HS256 tokens minted per call from the
// secret and payload with a forced iat/exp pair.
type AuthSettings struct {
	Token     string         `json:"token"`
	Secret    string         `json:"secret"`
	JWTExpiry int64          `json:"jwt_expiry" validate:"min=0"`
	Payload   map[string]any `json:"payload"`
}

// Station is both the runtime daemon and the configuration document: the
// JSON-tagged fields are what websync.config holds, everything tagged "-"
// is rebuilt at startup. One mutex serializes the tick loop and console
// triggers so scheduled and manual work never interleave.
type Station struct {
	Active     bool          `json:"-"`
	ConfigFile string        `json:"-"`
	Log        *utils.Logger `json:"-"`

	Paths *utils.Paths `json:"paths"`

	Port            int  `json:"port"`
	AutoPortForward bool `json:"auto_port_forward"`
	SessionHours    int  `json:"session_hours"`

	BackupEnabled bool `json:"backup_enabled"`

	Uptime   UptimeSettings  `json:"uptime"`
	Warnings WarningSettings `json:"warnings"`
	SMTP     mailer.Config   `json:"smtp"`
	Auth     AuthSettings    `json:"auth"`

	URLs    []*models.UptimeTarget `json:"urls"`
	Backups []*models.BackupTarget `json:"backups"`

	// Broadcast feeds events to connected consoles; wired before the
	// clock starts, nil in tests and headless runs.
	Broadcast func(models.FeedEvent) `json:"-"`

	mu           sync.Mutex          `json:"-"`
	auditLog     []models.AuditEntry `json:"-"`
	uptimeFails  int                 `json:"-"`
	warningsSent int                 `json:"-"`

	ticks    chan time.Time `json:"-"`
	tickStop chan struct{}  `json:"-"`
	runWG    sync.WaitGroup `json:"-"`

	telemetryMu   sync.RWMutex            `json:"-"`
	telemetry     *models.SystemTelemetry `json:"-"`
	telemetryStop chan struct{}           `json:"-"`
	telemetryWG   sync.WaitGroup          `json:"-"`
	lastCPUTotal  float64                 `json:"-"`
	lastCPUIdle   float64                 `json:"-"`

	// Transient NAT state for the console port (not persisted)
	PortForwardActive       bool          `json:"-"`
	PortForwardExternalPort int           `json:"-"`
	PortForwardLastError    string        `json:"-"`
	ExternalIP              string        `json:"-"`
	pfStop                  chan struct{} `json:"-"`
}

// newDefaults returns a Station carrying the shipped default
// configuration, before any config file is consulted.
func newDefaults() *Station {
	return &Station{
		Port:            5000,
		AutoPortForward: false,
		SessionHours:    24,
		BackupEnabled:   false,
		Uptime: UptimeSettings{
			IntervalMinutes:   60,
			DowntimeTolerance: 1,
		},
		Warnings: WarningSettings{
			UseEmail:          false,
			SendPostRequest:   false,
			PostRequestRoutes: []string{"https://your-site.com/mycentrallog"},
			Email:             "myemailaccount@domain.com",
			DailyMax:          4,
		},
		SMTP: mailer.Config{
			Server:   "smtp.gmail.com",
			Port:     587,
			Username: "myemailaccount@domain.com",
			Password: "some pass word here",
			From:     "myemailaccount@domain.com",
		},
		Auth: AuthSettings{
			Token:     "",
			Secret:    "a-string-secret-at-least-256-bits-long",
			JWTExpiry: 600,
			Payload: map[string]any{
				"sub":   "1234567890",
				"name":  "John Doe",
				"admin": true,
			},
		},
		URLs:    []*models.UptimeTarget{},
		Backups: []*models.BackupTarget{},
	}
}

// ConfigExists reports whether a config file is present at path.
func ConfigExists(path string) bool {
	return fileExists(path)
}

// WriteDefaultConfig writes the default configuration document to
// configPath, rooted at the current working directory. The operator is
// expected to edit the file and restart.
func WriteDefaultConfig(configPath string) error {
	if strings.TrimSpace(configPath) == "" {
		return fmt.Errorf("config path cannot be empty")
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("unable to determine working directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	s := newDefaults()
	s.Paths = utils.NewPaths(cwd)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default configuration: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write default configuration: %w", err)
	}
	return nil
}

// NewStation creates a Station from ./websync.config.
func NewStation() (*Station, error) { return NewStationWithConfig("") }

// NewStationWithConfig creates a Station loading configuration from the
// provided path, defaulting to ./websync.config. A missing or malformed
// file leaves the defaults in place with Active false; an invalid target
// set (duplicate descriptions, unusable folder names) is a hard error.
func NewStationWithConfig(configPath string) (*Station, error) {
	s := newDefaults()

	// Root paths at the executable directory until the config is loaded,
	// so early log lines never land in the working directory.
	if exe, err := os.Executable(); err == nil {
		if resolved, rerr := filepath.EvalSymlinks(exe); rerr == nil && resolved != "" {
			exe = resolved
		}
		s.Paths = utils.NewPaths(filepath.Dir(exe))
	} else {
		s.Paths = utils.NewPaths(filepath.Join(os.TempDir(), "websync"))
	}

	s.startLogs()

	config := strings.TrimSpace(configPath)
	if config == "" {
		config = "websync.config"
	}
	s.ConfigFile = config

	if err := s.load(); err != nil {
		// Run on with the defaults; the console will show the load failure.
		s.safeLog(err.Error())
	} else {
		// Re-open logs under the configured root
		s.startLogs()
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	s.normalize()

	s.Paths.DeployRoot(s.Log)
	s.loadRetentionLogs()
	s.importAuditLog()
	if len(s.auditLog) == 0 {
		s.addAudit(welcomeMessage)
	}

	s.safeLog("Configuration loaded")
	return s, nil
}

func (s *Station) safeLog(message string) {
	if s.Log != nil {
		s.Log.Write(message)
	}
}

func (s *Station) startLogs() {
	if err := os.MkdirAll(s.Paths.LogsDir(), 0o755); err != nil {
		s.safeLog(fmt.Sprintf("Unable to create logs directory %s: %v", s.Paths.LogsDir(), err))
	}
	if s.Log != nil {
		s.Log.Close()
	}
	s.Log = utils.NewLogger(s.Paths.LogFile())
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// load reads the configuration document and rebuilds in-memory state.
func (s *Station) load() error {
	data, err := os.ReadFile(s.ConfigFile)
	if err != nil {
		return fmt.Errorf("configuration file not found: %w", err)
	}

	temp := &Station{}
	if err := json.Unmarshal(data, temp); err != nil {
		return fmt.Errorf("error parsing configuration: %w", err)
	}

	s.Port = temp.Port
	s.AutoPortForward = temp.AutoPortForward
	s.SessionHours = temp.SessionHours
	s.BackupEnabled = temp.BackupEnabled
	s.Uptime = temp.Uptime
	s.Warnings = temp.Warnings
	s.SMTP = temp.SMTP
	s.Auth = temp.Auth
	if temp.URLs != nil {
		s.URLs = temp.URLs
	}
	if temp.Backups != nil {
		s.Backups = temp.Backups
	}
	if temp.Paths != nil && temp.Paths.RootPath != "" {
		s.Paths = temp.Paths
	}

	s.Active = true
	return nil
}

// Save persists the configuration document back to disk.
func (s *Station) Save() {
	if s.ConfigFile == "" {
		s.safeLog("No configuration file found. Please specify a configuration file path with --config.")
		return
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		s.safeLog(fmt.Sprintf("Error marshaling configuration: %v", err))
		return
	}

	if err := os.WriteFile(s.ConfigFile, data, 0o644); err != nil {
		s.safeLog(fmt.Sprintf("Error saving configuration: %v", err))
		s.Active = false
		return
	}

	s.safeLog("Configuration saved successfully")
	s.Active = true
}

// outboundBearer resolves the bearer value for one outbound call. Minting
// failures are logged and the call proceeds unauthenticated.
func (s *Station) outboundBearer() string {
	bearer, err := token.Bearer(s.Auth.Token, s.Auth.Payload, s.Auth.Secret, s.Auth.JWTExpiry)
	if err != nil {
		s.safeLog(fmt.Sprintf("Failed to create JWT for outbound request: %v", err))
		return ""
	}
	return bearer
}

func (s *Station) broadcast(kind, message string) {
	if s.Broadcast == nil {
		return
	}
	s.Broadcast(models.FeedEvent{Kind: kind, Message: message, CreatedAt: time.Now().UTC()})
}

func (s *Station) targetByDescription(description string) *models.BackupTarget {
	for _, target := range s.Backups {
		if target != nil && target.Description == description {
			return target
		}
	}
	return nil
}

// IsActive reports whether a configuration was loaded successfully.
func (s *Station) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Active
}

// SetBackupEnabled toggles the backup schedule and persists the change.
func (s *Station) SetBackupEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BackupEnabled == enabled {
		return
	}
	s.BackupEnabled = enabled
	if enabled {
		s.safeLog("Backup schedule enabled")
	} else {
		s.safeLog("Backup schedule disabled")
	}
	s.Save()
}

// IsBackupEnabled reports whether the backup schedule is running.
func (s *Station) IsBackupEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.BackupEnabled
}

// WarningQuota returns warnings sent today and the configured daily cap.
func (s *Station) WarningQuota() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warningsSent, s.Warnings.DailyMax
}

// StatusURLs returns the console view of every polled URL.
func (s *Station) StatusURLs() []models.UptimeStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UptimeStatus, 0, len(s.URLs))
	for _, target := range s.URLs {
		if target == nil {
			continue
		}
		out = append(out, models.UptimeStatus{
			Description: target.Description,
			URL:         target.URL,
			Up:          target.LastStatus,
		})
	}
	return out
}

// StatusBackups returns the console view of every backup target,
// including the countdown to its next scheduled run.
func (s *Station) StatusBackups() []models.BackupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	out := make([]models.BackupStatus, 0, len(s.Backups))
	for _, target := range s.Backups {
		if target == nil {
			continue
		}
		status := models.BackupStatus{
			Description: target.Description,
			URL:         target.URL,
			Interval:    target.Interval,
			Time:        target.Time,
			Max:         target.Max,
			Records:     len(target.Records),
			NextRun:     countdownText(target.Interval, target.Time, now),
		}
		if n := len(target.Records); n > 0 {
			last := target.Records[n-1].Timestamp
			status.LastBackup = &last
		}
		out = append(out, status)
	}
	return out
}

// RecordsFor returns a copy of the retention log for one target.
func (s *Station) RecordsFor(description string) ([]models.BackupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.targetByDescription(description)
	if target == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownTarget, description)
	}
	out := make([]models.BackupRecord, len(target.Records))
	copy(out, target.Records)
	return out, nil
}

// AuditEntries returns up to limit audit entries, most recent first.
// A non-positive limit returns the full trail.
func (s *Station) AuditEntries(limit int) []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.auditLog)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.AuditEntry, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.auditLog[i])
	}
	return out
}

// Shutdown stops the background loops and removes the console port
// mapping when one is active.
func (s *Station) Shutdown() {
	s.StopClock()
	s.StopTelemetry()
	s.StopPortForwarding()
	if s.Log != nil {
		s.Log.Write("Station stopped")
	}
}
