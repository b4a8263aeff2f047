package debouncing

import (
	"math/rand"
	"testing"
	"time"
)

// simulate feeds events (offsets from t0) into a debouncer, checking Due every
// millisecond, and completes each restart immediately. It returns the restart times.
func simulate(d *Debouncer, t0 time.Time, events []time.Duration, until time.Duration) []time.Duration {
	var fired []time.Duration
	next := 0
	for now := time.Duration(0); now <= until; now += time.Millisecond {
		for next < len(events) && events[next] <= now {
			d.Observe(t0.Add(events[next]))
			next++
		}
		if d.Due(t0.Add(now)) {
			fired = append(fired, now)
			d.Complete(t0.Add(now))
		}
	}
	return fired
}

func TestBurstWithinWindowRestartsOnce(t *testing.T) {
	window := 300 * time.Millisecond
	d := New(window)
	t0 := time.Unix(0, 0)

	events := []time.Duration{0, 50 * time.Millisecond, 120 * time.Millisecond, 299 * time.Millisecond, 400 * time.Millisecond}
	fired := simulate(d, t0, events, 2*time.Second)

	if len(fired) != 1 {
		t.Fatalf("expected exactly one restart, got %d at %v", len(fired), fired)
	}
	if fired[0] != 700*time.Millisecond {
		t.Errorf("expected restart one window after the last change (700ms), got %v", fired[0])
	}
}

func TestChangeBeforeDeadlineExtendsIt(t *testing.T) {
	d := New(300 * time.Millisecond)
	t0 := time.Unix(0, 0)

	d.Observe(t0)
	d.Observe(t0.Add(200 * time.Millisecond))

	if d.Due(t0.Add(400 * time.Millisecond)) {
		t.Fatal("deadline should have been extended to 500ms")
	}
	deadline, ok := d.Deadline()
	if !ok || !deadline.Equal(t0.Add(500*time.Millisecond)) {
		t.Fatalf("expected deadline at 500ms, got %v (%v)", deadline.Sub(t0), ok)
	}
	if !d.Due(t0.Add(500 * time.Millisecond)) {
		t.Fatal("expected restart at the extended deadline")
	}
	if d.Due(t0.Add(time.Second)) {
		t.Fatal("a window must not fire twice")
	}
}

func TestOneRestartPerSeparatedWindow(t *testing.T) {
	window := 100 * time.Millisecond
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		var events []time.Duration
		var at time.Duration
		want := 1
		n := 1 + rng.Intn(20)
		for i := 0; i < n; i++ {
			if i > 0 {
				if rng.Intn(2) == 0 {
					at += time.Duration(rng.Intn(int(window/time.Millisecond))) * time.Millisecond
				} else {
					at += window + time.Duration(1+rng.Intn(200))*time.Millisecond
					want++
				}
			}
			events = append(events, at)
		}

		fired := simulate(New(window), time.Unix(0, 0), events, at+2*window)
		if len(fired) != want {
			t.Fatalf("round %d: events %v: expected %d restarts, got %d (%v)", round, events, want, len(fired), fired)
		}
	}
}

func TestChangesDuringRestartCoalesceIntoOnePending(t *testing.T) {
	d := New(100 * time.Millisecond)
	t0 := time.Unix(0, 0)

	d.Observe(t0)
	if !d.Due(t0.Add(100 * time.Millisecond)) {
		t.Fatal("expected first restart")
	}
	if !d.InFlight() {
		t.Fatal("restart should be in flight")
	}

	for i := 1; i <= 5; i++ {
		d.Observe(t0.Add(time.Duration(100+i*10) * time.Millisecond))
	}
	if d.Due(t0.Add(time.Second)) {
		t.Fatal("no restart may start while one is in flight")
	}
	if _, ok := d.Deadline(); ok {
		t.Fatal("no deadline should be visible while in flight")
	}

	d.Complete(t0.Add(time.Second))
	if !d.Due(t0.Add(time.Second)) {
		t.Fatal("expected exactly one pending restart after completion")
	}
	d.Complete(t0.Add(time.Second))
	if d.Due(t0.Add(2 * time.Second)) {
		t.Fatal("pending restarts must not queue beyond one")
	}
}

func TestPendingRestartWaitsForWindowAfterLastChange(t *testing.T) {
	d := New(100 * time.Millisecond)
	t0 := time.Unix(0, 0)

	d.Observe(t0)
	d.Due(t0.Add(100 * time.Millisecond))
	d.Observe(t0.Add(150 * time.Millisecond))
	d.Complete(t0.Add(160 * time.Millisecond))

	if d.Due(t0.Add(200 * time.Millisecond)) {
		t.Fatal("pending restart should wait one window after the last change")
	}
	if !d.Due(t0.Add(250 * time.Millisecond)) {
		t.Fatal("expected pending restart at 250ms")
	}
}

func TestReset(t *testing.T) {
	d := New(time.Second)
	t0 := time.Unix(0, 0)
	d.Observe(t0)
	d.Reset()
	if _, ok := d.Deadline(); ok {
		t.Fatal("expected no deadline after reset")
	}
	if d.Due(t0.Add(time.Hour)) {
		t.Fatal("reset debouncer must not fire")
	}
}

func TestZeroWindowFiresOnFirstChange(t *testing.T) {
	d := New(-time.Second)
	if d.Window() != 0 {
		t.Fatalf("negative window should clamp to 0, got %v", d.Window())
	}
	t0 := time.Unix(0, 0)
	d.Observe(t0)
	if !d.Due(t0) {
		t.Fatal("expected restart to be due immediately")
	}
}
