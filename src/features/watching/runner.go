package watching

import (
	"context"
	"log/slog"
	"sync"

	"github.com/contre95/pew/src/features/config"
	"github.com/contre95/pew/src/features/supervising"
	"github.com/contre95/pew/src/reload"
)

// Runner runs one Service per configuration. When Reload is called, the
// config file is read again and, if it is valid, the current run is stopped
// and a fresh one starts from the new configuration.
type Runner struct {
	manager *config.Manager
	spawner supervising.Spawner
	opts    []Option
	logger  *slog.Logger
	reloads chan struct{}

	mu      sync.RWMutex
	current *Service
}

// NewRunner creates a runner for the configuration held by manager. The
// options are applied to every Service it creates.
func NewRunner(manager *config.Manager, spawner supervising.Spawner, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		manager: manager,
		spawner: spawner,
		opts:    append([]Option{WithLogger(logger)}, opts...),
		logger:  logger,
		reloads: make(chan struct{}, 1),
	}
}

// Reload asks for the configuration to be re-read. Calls made while a reload
// is already queued are merged.
func (r *Runner) Reload() {
	select {
	case r.reloads <- struct{}{}:
	default:
	}
}

// Status reports the supervisor of the current run.
func (r *Runner) Status() supervising.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return supervising.Status{State: reload.Stopped, StateName: reload.Stopped.String()}
	}
	return r.current.Supervisor().Status()
}

// Trigger requests a restart in the current run.
func (r *Runner) Trigger() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current != nil {
		r.current.Trigger()
	}
}

// Run blocks until ctx is cancelled or a run ends on its own.
func (r *Runner) Run(ctx context.Context) error {
	rc, err := config.Resolve(r.manager.Get())
	if err != nil {
		return err
	}

	for {
		svc := NewService(rc, r.spawner, r.opts...)
		r.mu.Lock()
		r.current = svc
		r.mu.Unlock()

		runCtx, cancel := context.WithCancel(ctx)
		errc := make(chan error, 1)
		go func() { errc <- svc.Run(runCtx) }()

		next, ok := r.waitForReload(ctx, errc)
		if !ok {
			cancel()
			return <-errc
		}

		r.logger.Info("Configuration changed, starting a fresh run", "path", r.manager.Path())
		cancel()
		if err := <-errc; err != nil {
			r.logger.Warn("Previous run ended with an error", "error", err)
		}
		rc = next
	}
}

// waitForReload returns the next RunConfig once a valid configuration has
// been loaded. It returns false when the current run has ended instead.
func (r *Runner) waitForReload(ctx context.Context, errc chan error) (reload.RunConfig, bool) {
	for {
		select {
		case err := <-errc:
			// put it back for Run
			errc <- err
			return reload.RunConfig{}, false
		case <-ctx.Done():
			return reload.RunConfig{}, false
		case <-r.reloads:
			cfg, err := r.manager.Reload()
			if err != nil {
				r.logger.Error("Invalid configuration, keeping the current run", "path", r.manager.Path(), "error", err)
				continue
			}
			rc, err := config.Resolve(cfg)
			if err != nil {
				r.logger.Error("Invalid configuration, keeping the current run", "path", r.manager.Path(), "error", err)
				continue
			}
			return rc, true
		}
	}
}
