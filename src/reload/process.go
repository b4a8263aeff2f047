package reload

import (
	"context"
	"fmt"
	"time"
)

// State is the lifecycle state of the managed process.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Stopping
	Crashed
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Crashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ExitStatus describes how a process ended. Signal is empty when it exited normally.
type ExitStatus struct {
	Code   int
	Signal string
	Err    error
}

// Clean reports a zero exit code without a signal.
func (e ExitStatus) Clean() bool {
	return e.Code == 0 && e.Signal == "" && e.Err == nil
}

// EndReason records why an instance stopped being current.
type EndReason string

const (
	EndRestart     EndReason = "restart"
	EndShutdown    EndReason = "shutdown"
	EndExited      EndReason = "exited"
	EndSpawnFailed EndReason = "spawn_failed"
)

// ProcessRecord is one managed process instance as kept in the history.
type ProcessRecord struct {
	ID        string     `json:"id"`
	PID       int        `json:"pid"`
	Command   string     `json:"command"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	ExitCode  *int       `json:"exit_code,omitempty"`
	Signal    string     `json:"signal,omitempty"`
	Reason    EndReason  `json:"reason,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// History keeps the record of process instances started by the supervisor.
type History interface {
	// Record inserts or replaces the record with the same ID.
	Record(ctx context.Context, rec ProcessRecord) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]ProcessRecord, error)
}
