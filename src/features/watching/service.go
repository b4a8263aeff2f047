package watching

import (
	"context"
	"log/slog"
	"time"

	"github.com/contre95/pew/src/features/debouncing"
	"github.com/contre95/pew/src/features/detecting"
	"github.com/contre95/pew/src/features/metrics"
	"github.com/contre95/pew/src/features/supervising"
	"github.com/contre95/pew/src/reload"
)

// Service is the control loop of one run: it polls the detector, feeds the
// debouncer and asks the supervisor to restart when a burst has settled.
type Service struct {
	cfg        reload.RunConfig
	detector   *detecting.Detector
	debouncer  *debouncing.Debouncer
	supervisor *supervising.Supervisor

	metrics *metrics.Recorder
	history reload.History
	logger  *slog.Logger
	now     func() time.Time

	triggers chan struct{}
}

type Option func(*Service)

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithHistory(h reload.History) Option {
	return func(s *Service) {
		s.history = h
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires a detector, debouncer and supervisor for cfg.
func NewService(cfg reload.RunConfig, spawner supervising.Spawner, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg.WithDefaults(),
		logger:   slog.Default(),
		now:      time.Now,
		triggers: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.detector = detecting.NewDetector(s.cfg.Targets, s.cfg.Ignore, s.cfg.OnDelete,
		detecting.WithMetrics(s.metrics),
		detecting.WithLogger(s.logger),
		detecting.WithNow(s.now),
	)
	s.debouncer = debouncing.New(s.cfg.Debounce)
	s.supervisor = supervising.New(spawner, s.cfg.Command,
		supervising.WithGracefulTimeout(s.cfg.GracefulTimeout),
		supervising.WithHistory(s.history),
		supervising.WithMetrics(s.metrics),
		supervising.WithLogger(s.logger),
		supervising.WithNow(s.now),
	)
	return s
}

// Supervisor exposes the process supervisor for status reporting.
func (s *Service) Supervisor() *supervising.Supervisor {
	return s.supervisor
}

// Trigger requests a restart as if a file had changed. It goes through the
// debouncer, so repeated triggers coalesce.
func (s *Service) Trigger() {
	select {
	case s.triggers <- struct{}{}:
	default:
	}
}

// Run starts the process and supervises it until ctx is cancelled, in which
// case the process is stopped and Run returns nil. It returns an error when
// the command cannot be started or, with the exit crash policy, when the
// process fails.
func (s *Service) Run(ctx context.Context) error {
	for _, t := range s.detector.Targets() {
		s.logger.Info("Watching path", "path", t.Dir, "extensions", t.Extensions, "debounce", s.debouncer.Window())
	}
	snapshot := s.detector.Scan(nil).Snapshot

	if err := retrySpawn(ctx, s.logger, s.cfg.SpawnRetries, s.cfg.SpawnBackoff, s.supervisor.Start); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	poll := time.NewTimer(s.cfg.PollInterval)
	defer poll.Stop()
	wake := time.NewTimer(time.Hour)
	wake.Stop()
	defer wake.Stop()

	var restartDone chan error
	for {
		select {
		case <-ctx.Done():
			return s.shutdown(restartDone)

		case <-poll.C:
			res := s.detector.Scan(snapshot)
			snapshot = res.Snapshot
			if res.Changed {
				s.debouncer.Observe(res.Event.DetectedAt)
				s.logger.Debug("Restart scheduled", "paths", res.Event.Paths(), "in_flight", restartDone != nil)
			}
			poll.Reset(s.cfg.PollInterval)

		case <-wake.C:

		case <-s.triggers:
			s.logger.Info("Manual restart requested")
			s.debouncer.Observe(s.now())

		case err := <-restartDone:
			restartDone = nil
			s.debouncer.Complete(s.now())
			if err != nil && ctx.Err() == nil {
				s.logger.Error("Restart failed", "command", s.cfg.Command.String(), "error", err)
				s.supervisor.Stop(s.cfg.GracefulTimeout)
				return err
			}

		case notice := <-s.supervisor.Exits():
			// notices of replaced instances carry an old id
			if notice.ID != s.supervisor.Status().ID {
				s.logger.Debug("Ignoring exit of a replaced process", "pid", notice.PID, "id", notice.ID)
				break
			}
			if done, err := s.handleExit(notice); done {
				return err
			}
		}

		if restartDone == nil && ctx.Err() == nil {
			pending := s.debouncer.Pending()
			if s.debouncer.Due(s.now()) {
				s.logger.Info("Restart triggered", "changes", pending, "command", s.cfg.Command.String())
				restartDone = s.restart(ctx)
			}
		}

		wake.Stop()
		if deadline, ok := s.debouncer.Deadline(); ok {
			wake.Reset(max(deadline.Sub(s.now()), 0))
		}
	}
}

// handleExit applies the crash policy to a process that ended on its own.
// It reports whether the run is over.
func (s *Service) handleExit(notice *reload.ProcessExited) (bool, error) {
	switch s.cfg.OnCrash {
	case reload.CrashRestart:
		s.logger.Info("Restarting after exit", "pid", notice.PID, "exit_code", notice.Status.Code, "signal", notice.Status.Signal)
		s.debouncer.Observe(s.now())
	case reload.CrashExit:
		s.supervisor.Stop(s.cfg.GracefulTimeout)
		if notice.Status.Clean() {
			s.logger.Info("Process finished, exiting", "pid", notice.PID)
			return true, nil
		}
		return true, notice
	default:
		s.logger.Info("Waiting for changes before restarting", "pid", notice.PID, "exit_code", notice.Status.Code)
	}
	return false, nil
}

func (s *Service) restart(ctx context.Context) chan error {
	done := make(chan error, 1)
	go func() {
		first := true
		err := retrySpawn(ctx, s.logger, s.cfg.SpawnRetries, s.cfg.SpawnBackoff, func(ctx context.Context) error {
			if first {
				first = false
				return s.supervisor.Restart(ctx)
			}
			return s.supervisor.Start(ctx)
		})
		if ctx.Err() != nil {
			err = nil
		}
		done <- err
	}()
	return done
}

// shutdown stops the managed process once any in-flight restart has finished.
func (s *Service) shutdown(restartDone chan error) error {
	s.logger.Info("Shutting down")
	s.debouncer.Reset()
	if restartDone != nil {
		<-restartDone
	}
	if err := s.supervisor.Stop(s.cfg.GracefulTimeout); err != nil {
		s.logger.Error("Failed to stop process", "error", err)
	}
	return nil
}
