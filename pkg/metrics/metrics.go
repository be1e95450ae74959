// Package metrics provides performance tracking and observability for cohort
// using Prometheus metrics. It offers collectors for the ingestion pipeline:
// columns processed, questions built, agents materialized, and phase latency.
//
// # Basic Usage
//
//	// Record an ingested column
//	metrics.ColumnsIngested.WithLabelValues("csv", "success").Inc()
//
//	// Track inference latency
//	timer := metrics.NewTimer()
//	questionType := engine.Infer(stats)
//	metrics.InferenceLatency.WithLabelValues(string(questionType)).Observe(timer.Stop().Seconds())
//
// Counter: monotonically increasing values (e.g., questions built)
// Gauge: values that can go up or down (e.g., agents in the current list)
// Histogram: distribution of values (e.g., latency percentiles)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ColumnsIngested tracks the total number of response columns ingested.
	// Labels: format (csv/sav/dta), status (success/failure)
	ColumnsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_columns_ingested_total",
			Help: "Total number of response columns ingested",
		},
		[]string{"format", "status"},
	)

	// QuestionsBuilt tracks question construction outcomes.
	// Labels: type (multiple_choice/numerical/free_text), status (success/failure)
	QuestionsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_questions_built_total",
			Help: "Total number of survey questions built",
		},
		[]string{"type", "status"},
	)

	// AgentsMaterialized tracks the number of direct-answer agents created.
	// Labels: sampled (true/false)
	AgentsMaterialized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_agents_materialized_total",
			Help: "Total number of synthetic respondent agents materialized",
		},
		[]string{"sampled"},
	)

	// InferenceLatency tracks per-column type inference duration in seconds.
	// Labels: type (the inferred question type)
	InferenceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohort_inference_latency_seconds",
			Help:    "Per-column type inference latency in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
		},
		[]string{"type"},
	)

	// PhaseLatency tracks pipeline phase duration in seconds.
	// Labels: phase (load/normalize/infer/assemble/materialize)
	PhaseLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohort_phase_latency_seconds",
			Help:    "Ingestion pipeline phase latency in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-4, 10, 7),
		},
		[]string{"phase"},
	)

	// ObservationCount records the number of respondents in the last run.
	// Labels: datafile
	ObservationCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cohort_observations",
			Help: "Number of respondent observations in the most recent ingestion",
		},
		[]string{"datafile"},
	)
)

// Timer measures elapsed time for histogram observations.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since the timer started.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
