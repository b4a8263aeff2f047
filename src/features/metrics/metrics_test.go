package metrics

import (
	"testing"
	"time"

	"github.com/contre95/pew/src/reload"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, r *Recorder) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.ObserveScan(2*time.Millisecond, 12, 1)
	r.ObserveChanges([]reload.Change{{Path: "a.py", Kind: reload.FileCreated}, {Path: "b.py", Kind: reload.FileModified}, {Path: "c.py", Kind: reload.FileModified}})
	r.ObserveStart(nil)
	r.ObserveStart(&reload.SpawnError{Command: "badcmd"})
	r.ObserveRestart()
	r.ObserveExit("killed", 3*time.Second)
	r.ObserveState(reload.Running)

	f := gather(t, r)
	if got := f["pew_watched_files"].GetMetric()[0].GetGauge().GetValue(); got != 12 {
		t.Errorf("watched files = %v", got)
	}
	if got := f["pew_scan_errors_total"].GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("scan errors = %v", got)
	}
	changes := map[string]float64{}
	for _, m := range f["pew_changes_total"].GetMetric() {
		changes[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	if changes["created"] != 1 || changes["modified"] != 2 {
		t.Errorf("changes by kind = %v", changes)
	}
	if got := f["pew_spawn_failures_total"].GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("spawn failures = %v", got)
	}
	if got := f["pew_forced_kills_total"].GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("forced kills = %v", got)
	}
	if got := f["pew_process_state"].GetMetric()[0].GetGauge().GetValue(); got != float64(reload.Running) {
		t.Errorf("state = %v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveScan(time.Millisecond, 1, 0)
	r.ObserveChanges([]reload.Change{{Path: "a", Kind: reload.FileRemoved}})
	r.ObserveStart(nil)
	r.ObserveRestart()
	r.ObserveExit("stopped", time.Second)
	r.ObserveState(reload.Stopped)
	if r.Handler() == nil {
		t.Fatal("expected a handler")
	}
}
