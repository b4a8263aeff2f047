package reload

import (
	"path/filepath"
	"strings"
	"time"
)

// FileState is what a scan remembers about one file.
type FileState struct {
	ModTime time.Time
	Size    int64
}

// Snapshot maps absolute file paths to their last observed state.
// Each scan builds a new one; the previous is kept only for comparison.
type Snapshot map[string]FileState

// Differs reports whether the file changed between two observations.
func (s FileState) Differs(other FileState) bool {
	return !s.ModTime.Equal(other.ModTime) || s.Size != other.Size
}

// Under returns the entries located below dir (inclusive).
func (s Snapshot) Under(dir string) Snapshot {
	prefix := strings.TrimSuffix(dir, string(filepath.Separator)) + string(filepath.Separator)
	out := make(Snapshot)
	for path, st := range s {
		if path == dir || strings.HasPrefix(path, prefix) {
			out[path] = st
		}
	}
	return out
}
