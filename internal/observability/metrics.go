package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Identifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceaccess",
		Name:      "identifications_total",
		Help:      "Identification outcomes, one per evaluated face",
	}, []string{"result"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceaccess",
		Name:      "stage_duration_seconds",
		Help:      "Duration of identification and enrollment stages",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"stage"})

	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceaccess",
		Name:      "enrollments_total",
		Help:      "Enrollment attempts by result",
	}, []string{"result"})

	RegistryRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceaccess",
		Name:      "registry_refreshes_total",
		Help:      "Registry refreshes by status",
	}, []string{"status"})

	RegistryEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faceaccess",
		Name:      "registry_entries",
		Help:      "Embeddings in the currently published registry snapshot",
	})

	RegistryVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faceaccess",
		Name:      "registry_version",
		Help:      "Version of the currently published registry snapshot",
	})

	AccessLogWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "faceaccess",
		Name:      "access_log_write_failures_total",
		Help:      "Access log entries that could not be persisted",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceaccess",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faceaccess",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
