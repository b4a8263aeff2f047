package detecting

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/contre95/pew/src/features/metrics"
	"github.com/contre95/pew/src/reload"
)

// Result is the outcome of one scan. Snapshot is always set, even when some
// directories failed, and replaces the previous snapshot.
type Result struct {
	Changed  bool
	Event    reload.ChangeEvent
	Snapshot reload.Snapshot
	Errors   []error
}

// Detector polls the watch targets and compares them with the previous snapshot.
type Detector struct {
	targets  []reload.WatchTarget
	ignore   *regexp.Regexp
	onDelete reload.DeletionPolicy
	metrics  *metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Detector)

func WithMetrics(m *metrics.Recorder) Option {
	return func(d *Detector) {
		d.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDetector creates a detector for the given targets. Target directories are made absolute.
func NewDetector(targets []reload.WatchTarget, ignore *regexp.Regexp, onDelete reload.DeletionPolicy, opts ...Option) *Detector {
	abs := make([]reload.WatchTarget, 0, len(targets))
	for _, t := range targets {
		if dir, err := filepath.Abs(t.Dir); err == nil {
			t.Dir = dir
		}
		abs = append(abs, t)
	}
	if onDelete == "" {
		onDelete = reload.DeletionRestart
	}
	d := &Detector{
		targets:  abs,
		ignore:   ignore,
		onDelete: onDelete,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Targets returns the absolute watch targets.
func (d *Detector) Targets() []reload.WatchTarget {
	return append([]reload.WatchTarget(nil), d.targets...)
}

// Scan walks every target and reports whether anything changed since prev.
// Unreadable directories are logged and their previous entries are kept.
func (d *Detector) Scan(prev reload.Snapshot) Result {
	start := d.now()
	d.logger.Debug("Scan started", "targets", len(d.targets), "known_files", len(prev))

	next := make(reload.Snapshot, len(prev))
	var errs []error
	for _, t := range d.targets {
		errs = append(errs, d.scanTarget(t, prev, next)...)
	}
	for _, err := range errs {
		d.logger.Warn("Skipping unreadable path", "error", err)
	}

	changes := d.diff(prev, next)
	res := Result{
		Changed:  len(changes) > 0,
		Snapshot: next,
		Errors:   errs,
		Event:    reload.ChangeEvent{DetectedAt: d.now(), Changes: changes},
	}

	elapsed := d.now().Sub(start)
	d.metrics.ObserveScan(elapsed, len(next), len(errs))
	d.logger.Debug("Scan finished", "files", len(next), "changes", len(changes), "errors", len(errs), "duration", elapsed)
	if res.Changed {
		d.metrics.ObserveChanges(changes)
		d.logger.Info("Change detected", "changes", len(changes), "paths", summarize(changes, 5))
	}
	return res
}

func (d *Detector) scanTarget(t reload.WatchTarget, prev, next reload.Snapshot) []error {
	var errs []error
	keep := func(path string, err error) {
		errs = append(errs, &reload.ScanError{Path: path, Err: err})
		for p, st := range prev.Under(path) {
			next[p] = st
		}
	}

	info, err := os.Stat(t.Dir)
	if err != nil {
		keep(t.Dir, err)
		return errs
	}
	if !info.IsDir() {
		keep(t.Dir, fmt.Errorf("not a directory"))
		return errs
	}

	// the trailing separator makes WalkDir descend into a symlinked root
	root := t.Dir
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		path = filepath.Clean(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// vanished between listing and stat, it counts as deleted
				return nil
			}
			keep(path, err)
			return nil
		}
		if d.ignored(t.Dir, path) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !t.Matches(path) {
			return nil
		}

		var fi fs.FileInfo
		if entry.Type()&fs.ModeSymlink != 0 {
			fi, err = os.Stat(path)
		} else {
			fi, err = entry.Info()
		}
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				keep(path, err)
			}
			return nil
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		next[path] = reload.FileState{ModTime: fi.ModTime(), Size: fi.Size()}
		return nil
	})
	return errs
}

// ignored matches the ignore pattern against the path relative to the target,
// so the location of the project itself never hides it.
func (d *Detector) ignored(root, path string) bool {
	if d.ignore == nil || path == root {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return d.ignore.MatchString(filepath.ToSlash(rel))
}

func (d *Detector) diff(prev, next reload.Snapshot) []reload.Change {
	var changes []reload.Change
	for path, st := range next {
		old, ok := prev[path]
		switch {
		case !ok:
			changes = append(changes, reload.Change{Path: path, Kind: reload.FileCreated})
		case old.Differs(st):
			changes = append(changes, reload.Change{Path: path, Kind: reload.FileModified})
		}
	}
	if d.onDelete == reload.DeletionRestart {
		for path := range prev {
			if _, ok := next[path]; !ok {
				changes = append(changes, reload.Change{Path: path, Kind: reload.FileRemoved})
			}
		}
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

func summarize(changes []reload.Change, limit int) []string {
	out := make([]string, 0, limit)
	for i, c := range changes {
		if i == limit {
			out = append(out, fmt.Sprintf("... %d more", len(changes)-limit))
			break
		}
		out = append(out, string(c.Kind)+" "+c.Path)
	}
	return out
}
