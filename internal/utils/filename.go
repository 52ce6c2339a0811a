package utils

import (
	"regexp"
	"strings"
)

// SanitizeFilename strips characters that are unsafe in file names on the
// supported platforms. Downloaded archive names pass through here before
// they touch the backup folder.
func SanitizeFilename(input string) string {
	// Remove dangerous characters for filenames
	input = regexp.MustCompile(`[<>:"/\\|?*]`).ReplaceAllString(input, "")
	// Remove null bytes and control characters
	input = regexp.MustCompile(`[\x00-\x1F\x7F]`).ReplaceAllString(input, "")
	return strings.TrimSpace(input)
}
