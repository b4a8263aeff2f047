package reload

import (
	"path/filepath"
	"strings"
)

// WatchTarget is a directory plus the set of file extensions monitored under it.
// An empty extension set matches every file.
type WatchTarget struct {
	Dir        string
	Extensions []string
}

// NewWatchTarget builds a target with normalized, dot-prefixed, lower-case extensions.
func NewWatchTarget(dir string, extensions ...string) WatchTarget {
	seen := make(map[string]bool, len(extensions))
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = NormalizeExtension(ext)
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	return WatchTarget{Dir: filepath.Clean(dir), Extensions: exts}
}

// Matches reports whether the file path passes the target's extension filter.
func (t WatchTarget) Matches(path string) bool {
	if len(t.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range t.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// NormalizeExtension turns "PY", ".py" and "*.py" into ".py".
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(strings.ToLower(ext))
	ext = strings.TrimPrefix(ext, "*")
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
