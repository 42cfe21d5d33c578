package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics contains Prometheus metrics for the ingestion API server.
type IngestMetrics struct {
	PointsWritten        *prometheus.CounterVec
	WriteFailures        *prometheus.CounterVec
	WriteDuration        *prometheus.HistogramVec
	NotificationsRelayed *prometheus.CounterVec
}

// NewIngestMetrics creates and registers ingestion API metrics.
func NewIngestMetrics(namespace string) *IngestMetrics {
	m := &IngestMetrics{
		PointsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "points_written_total",
				Help:      "Total number of points written to the destination store",
			},
			[]string{"database"},
		),
		WriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "write_failures_total",
				Help:      "Total number of failed destination writes",
			},
			[]string{"database", "reason"},
		),
		WriteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "write_duration_seconds",
				Help:      "Duration of destination write operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"database"},
		),
		NotificationsRelayed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "notifications_relayed_total",
				Help:      "Total number of notifications relayed to the push provider",
			},
			[]string{"app"},
		),
	}

	MustRegister(
		m.PointsWritten,
		m.WriteFailures,
		m.WriteDuration,
		m.NotificationsRelayed,
	)

	return m
}
