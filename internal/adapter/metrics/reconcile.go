package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileMetrics holds Prometheus metrics for counter drift reconciliation.
type ReconcileMetrics struct {
	Runs          *prometheus.CounterVec
	DriftDetected prometheus.Counter
	DriftRepaired prometheus.Counter
	LastRun       prometheus.Gauge
}

// NewReconcileMetrics creates and registers reconciler metrics on the given registry.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	m := &ReconcileMetrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "runs_total",
			Help:      "Total number of reconciliation passes, by result.",
		}, []string{"result"}),
		DriftDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "drift_detected_total",
			Help:      "Total number of posts found with counters diverging from reaction rows.",
		}),
		DriftRepaired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "drift_repaired_total",
			Help:      "Total number of posts whose counters were recomputed.",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed reconciliation pass.",
		}),
	}

	reg.MustRegister(m.Runs, m.DriftDetected, m.DriftRepaired, m.LastRun)
	return m
}
