package supervising

import (
	"github.com/contre95/pew/src/reload"
)

// Spawner launches the managed command. Implementations live in infra/process;
// tests provide fakes.
type Spawner interface {
	Spawn(cmd reload.Command) (Process, error)
}

// Process is a launched OS process.
type Process interface {
	PID() int
	// Terminate asks the process to exit (SIGTERM on unix).
	Terminate() error
	// Kill forces the process to exit.
	Kill() error
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// ExitStatus is only meaningful after Done is closed.
	ExitStatus() reload.ExitStatus
}
