package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReactionMetrics holds Prometheus metrics for the reaction transition engine.
type ReactionMetrics struct {
	Submissions *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Retries     *prometheus.CounterVec
	Duration    prometheus.Histogram
}

// NewReactionMetrics creates and registers reaction metrics on the given registry.
func NewReactionMetrics(reg prometheus.Registerer) *ReactionMetrics {
	m := &ReactionMetrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactions",
			Name:      "submissions_total",
			Help:      "Total number of reaction submissions, by result.",
		}, []string{"result"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactions",
			Name:      "transitions_total",
			Help:      "Total number of committed reaction transitions, by kind and resulting state.",
		}, []string{"kind", "state"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactions",
			Name:      "retries_total",
			Help:      "Total number of transition retries, by reason.",
		}, []string{"reason"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reactions",
			Name:      "submission_duration_seconds",
			Help:      "Duration of reaction submissions in seconds, including retries.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
	}

	reg.MustRegister(m.Submissions, m.Transitions, m.Retries, m.Duration)
	return m
}
