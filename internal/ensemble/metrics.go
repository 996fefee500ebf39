package ensemble

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ensembled",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ensembled",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ensembled",
			Subsystem: "pipeline",
			Name:      "model_calls_total",
			Help:      "Total generation calls by model id",
		},
		[]string{"model"},
	)

	feedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ensembled",
			Subsystem: "pipeline",
			Name:      "feedback_total",
			Help:      "Total feedback submissions by rating",
		},
		[]string{"rating"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, runDuration, modelCallsTotal, feedbackTotal)
}
