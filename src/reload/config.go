package reload

import (
	"regexp"
	"strings"
	"time"
)

// DeletionPolicy decides whether a watched file disappearing counts as a change.
type DeletionPolicy string

const (
	DeletionRestart DeletionPolicy = "restart"
	DeletionIgnore  DeletionPolicy = "ignore"
)

// CrashPolicy decides what the control loop does when the managed process exits on its own.
type CrashPolicy string

const (
	// CrashWait keeps the supervisor alive and waits for the next file change.
	CrashWait CrashPolicy = "wait"
	// CrashRestart restarts the process after one debounce window.
	CrashRestart CrashPolicy = "restart"
	// CrashExit ends the run.
	CrashExit CrashPolicy = "exit"
)

// Command is the process the supervisor keeps alive.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// RunConfig is the resolved configuration of one run. It is not mutated after load;
// a configuration change produces a new RunConfig and a fresh run.
type RunConfig struct {
	Targets         []WatchTarget
	Ignore          *regexp.Regexp
	PollInterval    time.Duration
	Debounce        time.Duration
	Command         Command
	GracefulTimeout time.Duration
	LogLevel        string
	OnDelete        DeletionPolicy
	OnCrash         CrashPolicy
	SpawnRetries    int
	SpawnBackoff    time.Duration
}

const (
	DefaultPollInterval    = time.Second
	DefaultDebounce        = 300 * time.Millisecond
	DefaultGracefulTimeout = 5 * time.Second
	DefaultSpawnBackoff    = 500 * time.Millisecond
)

// WithDefaults fills zero values with the package defaults.
func (c RunConfig) WithDefaults() RunConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Debounce < 0 {
		c.Debounce = 0
	}
	if c.GracefulTimeout <= 0 {
		c.GracefulTimeout = DefaultGracefulTimeout
	}
	if c.OnDelete == "" {
		c.OnDelete = DeletionRestart
	}
	if c.OnCrash == "" {
		c.OnCrash = CrashWait
	}
	if c.SpawnBackoff <= 0 {
		c.SpawnBackoff = DefaultSpawnBackoff
	}
	return c
}
