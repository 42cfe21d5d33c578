package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SubscriberMetrics contains Prometheus metrics for the MQTT subscriber.
type SubscriberMetrics struct {
	MessagesReceived  *prometheus.CounterVec
	MessagesUnmatched prometheus.Counter
	HandlerFailures   *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
	ReconnectAttempts prometheus.Counter
	ConnectionStatus  prometheus.Gauge
}

// NewSubscriberMetrics creates and registers MQTT subscriber metrics.
func NewSubscriberMetrics(namespace string) *SubscriberMetrics {
	m := &SubscriberMetrics{
		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "messages_received_total",
				Help:      "Total number of messages dispatched to each route",
			},
			[]string{"route"},
		),
		MessagesUnmatched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "messages_unmatched_total",
				Help:      "Total number of messages matching no registered route",
			},
		),
		HandlerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "handler_failures_total",
				Help:      "Total number of per-message handler failures",
			},
			[]string{"route"},
		),
		NotificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "notifications_sent_total",
				Help:      "Total number of push notifications sent by handlers",
			},
			[]string{"route"},
		),
		ReconnectAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "reconnect_attempts_total",
				Help:      "Total number of broker reconnection attempts",
			},
		),
		ConnectionStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "connection_status",
				Help:      "Current broker connection status (1=connected, 0=disconnected)",
			},
		),
	}

	MustRegister(
		m.MessagesReceived,
		m.MessagesUnmatched,
		m.HandlerFailures,
		m.NotificationsSent,
		m.ReconnectAttempts,
		m.ConnectionStatus,
	)

	return m
}
