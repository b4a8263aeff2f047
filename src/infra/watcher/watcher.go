package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultSettle = 200 * time.Millisecond

// Event is emitted once a burst of writes to the watched file has settled.
type Event struct {
	Path      string
	Op        string
	Timestamp time.Time
}

// FileWatcher reports changes to a single file, typically the config file.
// The parent directory is watched so editors that replace the file on save
// (write to a temp file, then rename) are still noticed.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	settle  time.Duration
	logger  *slog.Logger
	events  chan Event

	mu       sync.Mutex
	timer    *time.Timer
	lastOp   fsnotify.Op
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewFileWatcher creates a watcher for path. Events are delivered on Events().
func NewFileWatcher(path string, settle time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWatcher{
		watcher:  watcher,
		path:     abs,
		settle:   settle,
		logger:   logger,
		events:   make(chan Event, 1),
		stopChan: make(chan struct{}),
	}, nil
}

// Events delivers settled changes. A change that arrives while the previous
// event is still unread is folded into it.
func (w *FileWatcher) Events() <-chan Event {
	return w.events
}

// Start begins watching until ctx is cancelled or Stop is called.
func (w *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.logger.Debug("Watching config file", "path", w.path)
	go w.watchLoop(ctx)
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.mu.Unlock()
		w.watcher.Close()
	})
}

func (w *FileWatcher) watchLoop(ctx context.Context) {
	defer w.Stop()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (w *FileWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastOp = event.Op
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settle, w.emit)
}

func (w *FileWatcher) emit() {
	w.mu.Lock()
	op := w.lastOp
	w.mu.Unlock()

	event := Event{Path: w.path, Op: op.String(), Timestamp: time.Now()}
	select {
	case w.events <- event:
		w.logger.Debug("Config file changed", "path", event.Path, "op", event.Op)
	case <-w.stopChan:
	default:
		// an unread event is already pending
	}
}
