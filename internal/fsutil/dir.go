package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// badChars covers Windows, macOS and Linux in one pass.
var badChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeName replaces filesystem-hostile characters in a title with
// underscores.
func SanitizeName(title string) string {
	return strings.TrimSpace(badChars.ReplaceAllString(title, "_"))
}

// EnsureDirectory creates (if absent) and returns the download directory for
// a series title under base. Creation failure is returned to the caller;
// only the orchestrator decides whether that ends the process.
func EnsureDirectory(title, base string) (string, error) {
	dir := filepath.Join(base, SanitizeName(title))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	return dir, nil
}
