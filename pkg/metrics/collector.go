package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CollectorMetrics contains Prometheus metrics for the polling collectors.
type CollectorMetrics struct {
	PointsEmitted     *prometheus.CounterVec
	RecordsSkipped    *prometheus.CounterVec
	FetchFailures     *prometheus.CounterVec
	DispatchFailures  *prometheus.CounterVec
	BatchesDispatched *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
}

// NewCollectorMetrics creates and registers collector metrics.
func NewCollectorMetrics(namespace string) *CollectorMetrics {
	m := &CollectorMetrics{
		PointsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "points_emitted_total",
				Help:      "Total number of points produced by each source adapter",
			},
			[]string{"source"},
		),
		RecordsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "records_skipped_total",
				Help:      "Total number of malformed upstream records skipped",
			},
			[]string{"source", "reason"},
		),
		FetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "fetch_failures_total",
				Help:      "Total number of failed source fetch cycles",
			},
			[]string{"source"},
		),
		DispatchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "dispatch_failures_total",
				Help:      "Total number of failed batch submissions",
			},
			[]string{"source", "reason"},
		),
		BatchesDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "batches_dispatched_total",
				Help:      "Total number of batches submitted to the ingestion API",
			},
			[]string{"source"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "run_duration_seconds",
				Help:      "Duration of one source's collect-and-dispatch cycle",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}

	MustRegister(
		m.PointsEmitted,
		m.RecordsSkipped,
		m.FetchFailures,
		m.DispatchFailures,
		m.BatchesDispatched,
		m.RunDuration,
	)

	return m
}
