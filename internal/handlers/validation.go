package handlers

import (
	"fmt"
	"strings"

	"github.com/AndreasAanestad/websync-station/internal/middleware"
	"github.com/AndreasAanestad/websync-station/internal/station"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
)

// ValidateAccountInput sanitizes a proposed username and checks it and
// the password against the account policy. Returns the cleaned
// username.
func ValidateAccountInput(username, password string) (string, error) {
	clean := middleware.SanitizeString(username)
	if len(clean) < minUsernameLength || len(clean) > maxUsernameLength {
		return "", fmt.Errorf("username must be %d-%d characters", minUsernameLength, maxUsernameLength)
	}
	if strings.ContainsAny(clean, " \t") {
		return "", fmt.Errorf("username must not contain whitespace")
	}
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	return clean, nil
}

// ValidatePassword enforces the minimum password length. Length is the
// only policy; bcrypt does the rest.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// ParseRole maps a request role string onto a store role. An empty
// string defaults to operator.
func ParseRole(raw string) (station.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(station.RoleAdmin):
		return station.RoleAdmin, true
	case string(station.RoleOperator), "":
		return station.RoleOperator, true
	case string(station.RoleViewer):
		return station.RoleViewer, true
	default:
		return "", false
	}
}
