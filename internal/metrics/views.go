package metrics

import "github.com/prometheus/client_golang/prometheus"

// Table evaluation and live view metrics.
var (
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of table query evaluations",
		},
		[]string{"status"}, // "ready" / "error"
	)

	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Table query evaluation duration in seconds, snapshot included",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	DiscardedResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_results_total",
			Help:      "Evaluation results dropped before commit",
		},
		[]string{"reason"}, // "superseded" / "inactive"
	)

	OpenViews = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_views",
			Help:      "Number of live views registered with the manager",
		},
	)

	IndexVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_version",
			Help:      "Latest corpus index version observed by a live view",
		},
	)
)

var viewMetricsRegistered bool

// RegisterViewMetrics registers evaluation and live view metrics. Must be called once from main.
func RegisterViewMetrics() {
	if viewMetricsRegistered {
		return
	}
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(EvaluationDuration)
	prometheus.MustRegister(DiscardedResultsTotal)
	prometheus.MustRegister(OpenViews)
	prometheus.MustRegister(IndexVersion)
	viewMetricsRegistered = true
}
