package middleware

import (
	"regexp"
	"strings"
)

// Control characters except newline and tab. Free-text fields from
// request bodies are scrubbed with this before they reach the station.
var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

func SanitizeString(input string) string {
	cleaned := controlChars.ReplaceAllString(input, "")
	return strings.TrimSpace(cleaned)
}
