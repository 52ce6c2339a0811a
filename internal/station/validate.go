package station

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// validate checks the loaded configuration for errors the station cannot
// run with. Duplicate or unusable backup descriptions are hard errors:
// the description names the on-disk backup folder, so a collision would
// mix two targets' artifacts and retention logs.
func (s *Station) validate() error {
	seen := make(map[string]struct{}, len(s.Backups))
	for _, target := range s.Backups {
		if target == nil {
			continue
		}
		if err := validate.Struct(target); err != nil {
			return fmt.Errorf("invalid backup target %q: %w", target.Description, err)
		}
		if !usableDescription(target.Description) {
			return fmt.Errorf("backup description %q cannot be used as a folder name", target.Description)
		}
		if _, dup := seen[target.Description]; dup {
			return fmt.Errorf("duplicate backup description %q: descriptions must be unique", target.Description)
		}
		seen[target.Description] = struct{}{}
	}

	for _, target := range s.URLs {
		if target == nil {
			continue
		}
		if err := validate.Struct(target); err != nil {
			return fmt.Errorf("invalid uptime target %q: %w", target.Description, err)
		}
	}

	if err := validate.Struct(s.Uptime); err != nil {
		return fmt.Errorf("invalid uptime settings: %w", err)
	}
	if err := validate.Struct(s.Warnings); err != nil {
		return fmt.Errorf("invalid warning settings: %w", err)
	}

	if s.Warnings.UseEmail {
		if strings.TrimSpace(s.SMTP.Server) == "" || strings.TrimSpace(s.Warnings.Email) == "" {
			return fmt.Errorf("use_email is enabled but the SMTP server or warning address is missing")
		}
	}
	if s.Warnings.SendPostRequest && len(s.Warnings.PostRequestRoutes) == 0 {
		return fmt.Errorf("send_post_request is enabled but no post_request_routes are configured")
	}
	return nil
}

// usableDescription reports whether a description can safely name a
// directory under the station root.
func usableDescription(description string) bool {
	d := strings.TrimSpace(description)
	if d == "" || d == "." || d == ".." {
		return false
	}
	if filepath.Base(d) != d {
		return false
	}
	return !strings.ContainsAny(d, `<>:"/\|?*`)
}

// normalize repairs values the station tolerates rather than rejects: a
// zero uptime interval falls back to hourly sweeps, and unknown backup
// interval codes are flagged since such targets never come due.
func (s *Station) normalize() {
	if s.Uptime.IntervalMinutes == 0 {
		s.safeLog("Warning: uptime.interval_minutes is 0. Using default of 60 minutes.")
		s.Uptime.IntervalMinutes = 60
	}
	for _, target := range s.Backups {
		if target == nil {
			continue
		}
		if periodMinutes(target.Interval) == 0 {
			s.safeLog(fmt.Sprintf("Warning: backup %q has unknown interval %q and will never run", target.Description, target.Interval))
		}
	}
	if s.Port <= 0 {
		s.Port = 5000
	}
	if s.SessionHours <= 0 {
		s.SessionHours = 24
	}
}
