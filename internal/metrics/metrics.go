package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	signalsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reap",
		Name:      "signals_sent_total",
		Help:      "Total number of signals delivered, labelled by signal name.",
	}, []string{"signal"})

	terminations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reap",
		Name:      "terminations_total",
		Help:      "Confirmed terminations, labelled by the stage that achieved them.",
	}, []string{"stage"})

	monitoredTargets = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "reap",
		Name:      "monitored_targets",
		Help:      "Number of target processes in the latest monitor snapshot.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "reap",
		Name:      "build_info",
		Help:      "Build metadata for the running reap binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(signalsSent, terminations, monitoredTargets, buildInfo)
}

// Registry returns the Prometheus registry containing all reap metrics.
func Registry() *prometheus.Registry {
	return registry
}

// AddSignalSent records one delivered signal.
func AddSignalSent(signal string) {
	if signal == "" {
		return
	}
	signalsSent.WithLabelValues(signal).Inc()
}

// AddTermination records a confirmed termination for the given stage.
func AddTermination(stage string) {
	if stage == "" {
		stage = "unknown"
	}
	terminations.WithLabelValues(stage).Inc()
}

// SetMonitoredTargets records the size of the latest monitor snapshot.
func SetMonitoredTargets(n int) {
	if n < 0 {
		n = 0
	}
	monitoredTargets.Set(float64(n))
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
