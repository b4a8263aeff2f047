package process

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/contre95/pew/src/features/supervising"
	"github.com/contre95/pew/src/reload"
)

// ExecSpawner launches commands as real OS processes sharing the parent's
// stdout and stderr.
type ExecSpawner struct {
	logger *slog.Logger
	stdout *os.File
	stderr *os.File
}

// NewExecSpawner creates a spawner that logs with logger.
func NewExecSpawner(logger *slog.Logger) *ExecSpawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSpawner{logger: logger, stdout: os.Stdout, stderr: os.Stderr}
}

// Spawn starts cmd. The returned error comes straight from exec, the
// supervisor wraps it.
func (s *ExecSpawner) Spawn(cmd reload.Command) (supervising.Process, error) {
	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdin = nil
	c.Stdout = s.stdout
	c.Stderr = s.stderr
	configure(c)

	if err := c.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: c, pid: c.Process.Pid, done: make(chan struct{}), logger: s.logger}
	go p.wait()
	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	pid    int
	logger *slog.Logger

	done   chan struct{}
	mu     sync.Mutex
	status reload.ExitStatus
}

func (p *execProcess) PID() int { return p.pid }

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) ExitStatus() reload.ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *execProcess) Terminate() error {
	return p.signal(false)
}

func (p *execProcess) Kill() error {
	return p.signal(true)
}

func (p *execProcess) wait() {
	err := p.cmd.Wait()
	status := exitStatus(p.cmd.ProcessState, err)

	p.mu.Lock()
	p.status = status
	p.mu.Unlock()

	p.sweep()
	close(p.done)
}

func exitStatus(state *os.ProcessState, err error) reload.ExitStatus {
	if state == nil {
		return reload.ExitStatus{Code: -1, Err: err}
	}
	st := reload.ExitStatus{Code: state.ExitCode(), Signal: signalName(state)}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		st.Err = err
	}
	return st
}
