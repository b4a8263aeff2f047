package metrics

import (
	"net/http"
	"time"

	"github.com/contre95/pew/src/reload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the Prometheus collectors of one pew process.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	scans         prometheus.Counter
	scanErrors    prometheus.Counter
	scanDuration  prometheus.Histogram
	watchedFiles  prometheus.Gauge
	changes       *prometheus.CounterVec
	restarts      prometheus.Counter
	starts        prometheus.Counter
	spawnFailures prometheus.Counter
	exits         *prometheus.CounterVec
	forcedKills   prometheus.Counter
	uptime        prometheus.Histogram
	state         prometheus.Gauge
}

// NewRecorder creates the collectors on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pew_scans_total",
			Help: "Number of completed watch scans.",
		}),
		scanErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pew_scan_errors_total",
			Help: "Number of directories skipped because they could not be read.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pew_scan_duration_seconds",
			Help:    "Time spent scanning all watch targets.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		watchedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pew_watched_files",
			Help: "Files in the latest snapshot.",
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pew_changes_total",
			Help: "File changes detected, by kind.",
		}, []string{"kind"}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pew_restarts_total",
			Help: "Restarts issued by the control loop.",
		}),
		starts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pew_process_starts_total",
			Help: "Managed processes launched.",
		}),
		spawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pew_spawn_failures_total",
			Help: "Attempts to launch the command that failed.",
		}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pew_process_exits_total",
			Help: "Managed process terminations, by outcome.",
		}, []string{"outcome"}),
		forcedKills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pew_forced_kills_total",
			Help: "Processes killed after the graceful timeout.",
		}),
		uptime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pew_process_uptime_seconds",
			Help:    "How long managed processes ran before they ended.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pew_process_state",
			Help: "Supervisor state: 0 stopped, 1 starting, 2 running, 3 stopping, 4 crashed.",
		}),
	}
	r.registry.MustRegister(
		r.scans, r.scanErrors, r.scanDuration, r.watchedFiles, r.changes,
		r.restarts, r.starts, r.spawnFailures, r.exits, r.forcedKills, r.uptime, r.state,
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry, mostly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Recorder) ObserveScan(d time.Duration, files, errs int) {
	if r == nil {
		return
	}
	r.scans.Inc()
	r.scanDuration.Observe(d.Seconds())
	r.watchedFiles.Set(float64(files))
	r.scanErrors.Add(float64(errs))
}

func (r *Recorder) ObserveChanges(changes []reload.Change) {
	if r == nil {
		return
	}
	for _, c := range changes {
		r.changes.WithLabelValues(string(c.Kind)).Inc()
	}
}

func (r *Recorder) ObserveRestart() {
	if r == nil {
		return
	}
	r.restarts.Inc()
}

func (r *Recorder) ObserveStart(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.spawnFailures.Inc()
		return
	}
	r.starts.Inc()
}

// ObserveExit counts a terminated process. Outcome is one of
// "stopped", "killed", "exited" or "crashed".
func (r *Recorder) ObserveExit(outcome string, uptime time.Duration) {
	if r == nil {
		return
	}
	r.exits.WithLabelValues(outcome).Inc()
	r.uptime.Observe(uptime.Seconds())
	if outcome == "killed" {
		r.forcedKills.Inc()
	}
}

func (r *Recorder) ObserveState(s reload.State) {
	if r == nil {
		return
	}
	r.state.Set(float64(s))
}
