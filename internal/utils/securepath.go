package utils

import (
	"errors"
	"path/filepath"
	"strings"
)

// SecureJoin joins root and userPath ensuring the result stays inside root.
// The station uses this to resolve backup folder names and archived file
// names that arrive over the console API, so traversal sequences must never
// escape the backup root. root should be absolute; userPath may be relative.
func SecureJoin(root, userPath string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errors.New("root required")
	}
	cleanRoot := filepath.Clean(root)
	if strings.TrimSpace(userPath) == "" {
		return cleanRoot, nil
	}
	up := filepath.Clean(userPath)
	// Absolute input is treated as relative to root for the containment check
	if filepath.IsAbs(up) {
		up = strings.TrimPrefix(up, string(filepath.Separator))
	}
	candidate := filepath.Join(cleanRoot, up)
	rel, err := filepath.Rel(cleanRoot, candidate)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("path escapes root")
	}
	return candidate, nil
}
