package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixpoint_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "fixpoint_http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"method"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixpoint_notifications_published_total",
			Help: "Notification rows created by the fan-out service",
		},
		[]string{"type"},
	)

	NotificationFanoutFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixpoint_notification_fanout_failures_total",
			Help: "Fan-out attempts that failed before persisting",
		},
		[]string{"type"},
	)

	StatusFeedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fixpoint_statusfeed_clients",
			Help: "Currently connected status feed clients",
		},
	)
)
