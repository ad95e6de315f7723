package util

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NormalizePatternPath cleans and normalizes paths for matcher/pattern usage.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// IsPythonFile reports whether name looks like Python source (.py or .pyi).
func IsPythonFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".py", ".pyi":
		return true
	}
	return false
}

// EnsureParentDir creates the directory holding path (0755) when missing.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
