// Package debouncing coalesces bursts of file changes into single restarts.
//
// The debouncer keeps an explicit deadline instead of timers: every change
// pushes the deadline to change time + window, and the caller asks Due(now)
// whenever it wakes up. While a restart is in flight, further changes are
// folded into one pending restart that becomes due after Complete.
package debouncing

import (
	"sync"
	"time"
)

// Debouncer is safe for concurrent use, although the control loop drives it
// from a single goroutine.
type Debouncer struct {
	window time.Duration

	mu         sync.Mutex
	deadline   time.Time
	lastChange time.Time
	inFlight   bool
	pending    bool
	burst      int
}

// New creates a debouncer with the given coalescing window.
func New(window time.Duration) *Debouncer {
	if window < 0 {
		window = 0
	}
	return &Debouncer{window: window}
}

// Window returns the coalescing window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Observe records a change seen at the given time.
func (d *Debouncer) Observe(at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if at.After(d.lastChange) {
		d.lastChange = at
	}
	d.burst++
	if d.inFlight {
		d.pending = true
		return
	}
	d.deadline = d.lastChange.Add(d.window)
}

// Due reports whether a restart should be issued now. It returns true at most
// once per window and marks the restart as in flight until Complete is called.
func (d *Debouncer) Due(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inFlight || d.deadline.IsZero() || now.Before(d.deadline) {
		return false
	}
	d.deadline = time.Time{}
	d.inFlight = true
	d.burst = 0
	return true
}

// Complete marks the in-flight restart as finished. Changes observed while it
// ran schedule exactly one more restart.
func (d *Debouncer) Complete(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.inFlight = false
	if !d.pending {
		return
	}
	d.pending = false
	d.deadline = d.lastChange.Add(d.window)
	if d.deadline.Before(now) {
		d.deadline = now
	}
}

// Deadline returns when the next restart becomes due, if one is scheduled.
func (d *Debouncer) Deadline() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight || d.deadline.IsZero() {
		return time.Time{}, false
	}
	return d.deadline, true
}

// InFlight reports whether a restart has been handed out and not completed.
func (d *Debouncer) InFlight() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

// Pending returns the number of changes folded into the next restart.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.burst
}

// Reset drops any scheduled or pending restart.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deadline = time.Time{}
	d.pending = false
	d.burst = 0
}
