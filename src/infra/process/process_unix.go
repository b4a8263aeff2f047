//go:build unix

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configure puts the child in its own process group so signals reach
// everything it forks.
func configure(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func (p *execProcess) signal(force bool) error {
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	err := unix.Kill(-p.pid, sig)
	if errors.Is(err, unix.ESRCH) {
		// group gone, fall back to the leader in case it left the group
		err = unix.Kill(p.pid, sig)
	}
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

// sweep kills group members left behind after the leader exited.
func (p *execProcess) sweep() {
	if err := groupAlive(p.pid); err != nil {
		return
	}
	p.logger.Debug("Killing leftover processes in group", "pgid", p.pid)
	if err := unix.Kill(-p.pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		p.logger.Warn("Failed to kill process group", "pgid", p.pid, "error", err)
	}
}

func signalName(state *os.ProcessState) string {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return unix.SignalName(ws.Signal())
}

func groupAlive(pgid int) error {
	return unix.Kill(-pgid, 0)
}
