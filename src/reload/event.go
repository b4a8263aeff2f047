package reload

import (
	"time"
)

// ChangeKind represents the type of file change seen between two scans
type ChangeKind string

const (
	FileCreated  ChangeKind = "created"
	FileModified ChangeKind = "modified"
	FileRemoved  ChangeKind = "removed"
)

// Change is a single file that differs from the previous snapshot
type Change struct {
	Path string
	Kind ChangeKind
}

// ChangeEvent is what one scan reports when something changed.
// It is consumed by the debouncer and then dropped.
type ChangeEvent struct {
	DetectedAt time.Time
	Changes    []Change
}

// Paths returns the changed paths in detection order.
func (e ChangeEvent) Paths() []string {
	paths := make([]string, 0, len(e.Changes))
	for _, c := range e.Changes {
		paths = append(paths, c.Path)
	}
	return paths
}
