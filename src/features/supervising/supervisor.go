package supervising

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/contre95/pew/src/features/metrics"
	"github.com/contre95/pew/src/reload"
	"github.com/google/uuid"
)

const killWait = 5 * time.Second

// Status is a point-in-time view of the supervisor.
type Status struct {
	State     reload.State `json:"-"`
	StateName string       `json:"state"`
	ID        string       `json:"id,omitempty"`
	PID       int          `json:"pid,omitempty"`
	Command   string       `json:"command"`
	StartedAt *time.Time   `json:"started_at,omitempty"`
	Restarts  int          `json:"restarts"`
}

type instance struct {
	id        string
	proc      Process
	startedAt time.Time
	stopping  bool
}

// Supervisor owns the single managed process. Start, Stop and Restart are
// serialised: a call made while another is running waits for it.
type Supervisor struct {
	command  reload.Command
	graceful time.Duration
	spawner  Spawner
	history  reload.History
	metrics  *metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time

	ops sync.Mutex

	mu       sync.Mutex
	state    reload.State
	current  *instance
	restarts int
	exits    chan *reload.ProcessExited
}

type Option func(*Supervisor)

func WithGracefulTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.graceful = d
		}
	}
}

func WithHistory(h reload.History) Option {
	return func(s *Supervisor) {
		s.history = h
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Supervisor) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a stopped supervisor for the command.
func New(spawner Spawner, cmd reload.Command, opts ...Option) *Supervisor {
	s := &Supervisor{
		command:  cmd,
		graceful: reload.DefaultGracefulTimeout,
		spawner:  spawner,
		logger:   slog.Default(),
		now:      time.Now,
		state:    reload.Stopped,
		exits:    make(chan *reload.ProcessExited, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exits delivers a notification each time the managed process ends on its own.
func (s *Supervisor) Exits() <-chan *reload.ProcessExited {
	return s.exits
}

// State returns the current lifecycle state.
func (s *Supervisor) State() reload.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the state together with the current instance, if any.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:     s.state,
		StateName: s.state.String(),
		Command:   s.command.String(),
		Restarts:  s.restarts,
	}
	if s.current != nil {
		started := s.current.startedAt
		st.ID = s.current.id
		st.PID = s.current.proc.PID()
		st.StartedAt = &started
	}
	return st
}

// Start launches the command. It fails with *reload.SpawnError when the
// command cannot be launched; the supervisor stays usable.
func (s *Supervisor) Start(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.start(ctx)
}

// Stop asks the process to exit, waits up to gracefulTimeout and then kills it.
// Stopping a stopped supervisor does nothing.
func (s *Supervisor) Stop(gracefulTimeout time.Duration) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.stop(gracefulTimeout, reload.EndShutdown)
}

// Restart stops the current process and starts a new one as a single operation.
// When ctx is cancelled after the stop, the start is skipped.
func (s *Supervisor) Restart(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	if err := s.stop(s.graceful, reload.EndRestart); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.restarts++
	s.mu.Unlock()
	s.metrics.ObserveRestart()
	s.logger.Info("Restarting process", "command", s.command.String())
	return s.start(ctx)
}

func (s *Supervisor) start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != reload.Stopped {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("start in state %s: %w", state, reload.ErrAlreadyRunning)
	}
	s.setStateLocked(reload.Starting)
	s.mu.Unlock()

	startedAt := s.now()
	proc, err := s.spawner.Spawn(s.command)
	s.metrics.ObserveStart(err)
	if err != nil {
		spawnErr := &reload.SpawnError{Command: s.command.String(), Err: err}
		s.mu.Lock()
		s.setStateLocked(reload.Crashed)
		s.setStateLocked(reload.Stopped)
		s.mu.Unlock()

		s.logger.Error("Failed to start process", "command", s.command.String(), "error", err)
		stoppedAt := s.now()
		s.record(reload.ProcessRecord{
			ID:        uuid.New().String(),
			Command:   s.command.String(),
			StartedAt: startedAt,
			StoppedAt: &stoppedAt,
			Reason:    reload.EndSpawnFailed,
			Error:     err.Error(),
		})
		return spawnErr
	}

	inst := &instance{id: uuid.New().String(), proc: proc, startedAt: startedAt}
	s.mu.Lock()
	s.current = inst
	s.setStateLocked(reload.Running)
	s.mu.Unlock()

	s.logger.Info("Process started", "pid", proc.PID(), "id", inst.id, "command", s.command.String())
	s.record(reload.ProcessRecord{
		ID:        inst.id,
		PID:       proc.PID(),
		Command:   s.command.String(),
		StartedAt: inst.startedAt,
	})
	go s.watch(inst)
	return nil
}

func (s *Supervisor) stop(timeout time.Duration, reason reload.EndReason) error {
	s.mu.Lock()
	switch s.state {
	case reload.Stopped:
		s.mu.Unlock()
		return nil
	case reload.Crashed:
		// already gone, the exit was reported by watch
		s.current = nil
		s.setStateLocked(reload.Stopped)
		s.mu.Unlock()
		return nil
	case reload.Running:
	default:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("stop in state %s", state)
	}
	inst := s.current
	inst.stopping = true
	s.setStateLocked(reload.Stopping)
	s.mu.Unlock()

	killed, err := s.terminate(inst, timeout)
	status := inst.proc.ExitStatus()

	s.mu.Lock()
	s.current = nil
	s.setStateLocked(reload.Stopped)
	s.mu.Unlock()

	outcome := "stopped"
	if killed {
		outcome = "killed"
	}
	s.metrics.ObserveExit(outcome, s.now().Sub(inst.startedAt))
	s.logger.Info("Process stopped", "pid", inst.proc.PID(), "id", inst.id, "killed", killed, "exit_code", status.Code, "signal", status.Signal)
	s.recordEnd(inst, status, reason)
	return err
}

// terminate sends the graceful signal and escalates to a kill once timeout expires.
func (s *Supervisor) terminate(inst *instance, timeout time.Duration) (bool, error) {
	select {
	case <-inst.proc.Done():
		return false, nil
	default:
	}

	if err := inst.proc.Terminate(); err != nil {
		s.logger.Debug("Graceful signal failed", "pid", inst.proc.PID(), "error", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-inst.proc.Done():
		return false, nil
	case <-timer.C:
	}

	s.logger.Warn("Graceful stop timed out, killing process", "error", &reload.ShutdownTimeout{PID: inst.proc.PID(), Timeout: timeout})
	if err := inst.proc.Kill(); err != nil {
		s.logger.Debug("Kill failed", "pid", inst.proc.PID(), "error", err)
	}

	select {
	case <-inst.proc.Done():
		return true, nil
	case <-time.After(killWait):
		return true, fmt.Errorf("process %d still alive %s after kill", inst.proc.PID(), killWait)
	}
}

// watch reports exits that nobody asked for.
func (s *Supervisor) watch(inst *instance) {
	<-inst.proc.Done()
	status := inst.proc.ExitStatus()

	s.mu.Lock()
	if s.current != inst || inst.stopping {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(reload.Crashed)
	s.mu.Unlock()

	notice := &reload.ProcessExited{
		ID:      inst.id,
		PID:     inst.proc.PID(),
		Command: s.command.String(),
		Status:  status,
		Uptime:  s.now().Sub(inst.startedAt),
	}
	if status.Clean() {
		s.metrics.ObserveExit("exited", notice.Uptime)
		s.logger.Info("Process exited", "pid", notice.PID, "id", notice.ID, "exit_code", status.Code)
	} else {
		s.metrics.ObserveExit("crashed", notice.Uptime)
		s.logger.Error("Process crashed", "pid", notice.PID, "id", notice.ID, "command", notice.Command, "exit_code", status.Code, "signal", status.Signal)
	}
	s.recordEnd(inst, status, reload.EndExited)

	select {
	case s.exits <- notice:
	default:
		s.logger.Warn("Dropping exit notification, previous one not consumed", "pid", notice.PID)
	}
}

func (s *Supervisor) recordEnd(inst *instance, status reload.ExitStatus, reason reload.EndReason) {
	stoppedAt := s.now()
	code := status.Code
	rec := reload.ProcessRecord{
		ID:        inst.id,
		PID:       inst.proc.PID(),
		Command:   s.command.String(),
		StartedAt: inst.startedAt,
		StoppedAt: &stoppedAt,
		ExitCode:  &code,
		Signal:    status.Signal,
		Reason:    reason,
	}
	if status.Err != nil {
		rec.Error = status.Err.Error()
	}
	s.record(rec)
}

func (s *Supervisor) record(rec reload.ProcessRecord) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn("Failed to record process history", "id", rec.ID, "error", err)
	}
}
