package reload

import (
	"errors"
	"fmt"
	"time"
)

var ErrAlreadyRunning = errors.New("process already running")

// ScanError is a watch target (or part of it) that could not be read during a scan.
// It is logged and the directory is skipped for that tick.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// SpawnError means the command could not be launched at all.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ProcessExited is the notification sent when the managed process ends without being asked to.
type ProcessExited struct {
	ID      string
	PID     int
	Command string
	Status  ExitStatus
	Uptime  time.Duration
}

func (e *ProcessExited) Error() string {
	if e.Status.Signal != "" {
		return fmt.Sprintf("process %d (%s) killed by signal %s after %s", e.PID, e.Command, e.Status.Signal, e.Uptime.Round(time.Millisecond))
	}
	return fmt.Sprintf("process %d (%s) exited with code %d after %s", e.PID, e.Command, e.Status.Code, e.Uptime.Round(time.Millisecond))
}

// ShutdownTimeout is reported when a graceful stop did not finish in time and the process was killed.
type ShutdownTimeout struct {
	PID     int
	Timeout time.Duration
}

func (e *ShutdownTimeout) Error() string {
	return fmt.Sprintf("process %d did not exit within %s, killed", e.PID, e.Timeout)
}
