package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	processesSpawned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "procsup",
		Name:      "processes_spawned_total",
		Help:      "Total number of processes started successfully.",
	})

	spawnFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "procsup",
		Name:      "spawn_failures_total",
		Help:      "Total number of process starts refused by the operating system.",
	})

	processesRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "procsup",
		Name:      "processes_running",
		Help:      "Number of supervised processes that have not been reaped yet.",
	})

	processExits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procsup",
		Name:      "process_exits_total",
		Help:      "Total number of reaped processes by outcome (exited, signaled, abnormal).",
	}, []string{"outcome"})

	processLifetime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "procsup",
		Name:      "process_lifetime_seconds",
		Help:      "Wall-clock time between start and reap of supervised processes.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	killRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "procsup",
		Name:      "kill_requests_total",
		Help:      "Total number of termination signals delivered to running processes.",
	})

	capturedBytes = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  "procsup",
		Name:       "captured_bytes",
		Help:       "Size of captured output per stream at process exit.",
		Objectives: map[float64]float64{0.5: 0.05, 0.99: 0.001},
	}, []string{"stream"})

	eventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "procsup",
		Name:      "events_dropped_total",
		Help:      "Total number of lifecycle events dropped because the log consumer fell behind.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "procsup",
		Name:      "build_info",
		Help:      "Build metadata for the running procsup binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(
		processesSpawned,
		spawnFailures,
		processesRunning,
		processExits,
		processLifetime,
		killRequests,
		capturedBytes,
		eventsDropped,
		buildInfo,
	)
}

// Registry returns the Prometheus registry containing all procsup metrics.
func Registry() *prometheus.Registry {
	return registry
}

// ProcessSpawned records a successful start.
func ProcessSpawned() {
	processesSpawned.Inc()
	processesRunning.Inc()
}

// IncrementSpawnFailures records a refused start.
func IncrementSpawnFailures() {
	spawnFailures.Inc()
}

// ProcessExited records a reap with the given outcome label.
func ProcessExited(outcome string, lifetime time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	processesRunning.Dec()
	processExits.WithLabelValues(outcome).Inc()
	if lifetime >= 0 {
		processLifetime.Observe(lifetime.Seconds())
	}
}

// IncrementKillRequests records a termination signal sent to a running process.
func IncrementKillRequests() {
	killRequests.Inc()
}

// ObserveCapturedBytes records the final size of a captured stream.
func ObserveCapturedBytes(stream string, n int) {
	if stream == "" || n < 0 {
		return
	}
	capturedBytes.WithLabelValues(stream).Observe(float64(n))
}

// AddEventsDropped increments the dropped event counter.
func AddEventsDropped(n int) {
	if n <= 0 {
		return
	}
	eventsDropped.Add(float64(n))
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
