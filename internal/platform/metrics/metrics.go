package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookbot_webhook_requests_total",
			Help: "Inbound webhook calls by response status code",
		},
		[]string{"status"},
	)

	ProcessingSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hookbot_webhook_processing_seconds",
			Help:    "Wall-clock time spent processing one inbound webhook call",
			Buckets: prometheus.DefBuckets,
		},
	)

	DeliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookbot_delivery_failures_total",
			Help: "Failed sendMessage calls by failure reason",
		},
		[]string{"reason"},
	)

	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hookbot_notifications_dropped_total",
			Help: "Failure notifications dropped because the queue was full",
		},
	)

	CaptureSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hookbot_capture_sessions",
			Help: "Capture sessions currently held in memory",
		},
	)
)

func init() {
	prometheus.MustRegister(WebhookRequests)
	prometheus.MustRegister(ProcessingSeconds)
	prometheus.MustRegister(DeliveryFailures)
	prometheus.MustRegister(NotificationsDropped)
	prometheus.MustRegister(CaptureSessions)
}
