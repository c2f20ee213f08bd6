package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_operations_total",
			Help: "Settlement core operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by path, method and status",
		},
		[]string{"path", "method", "status"},
	)

	httpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by path, method and error code",
		},
		[]string{"path", "method", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"path", "method"},
	)
)

// Metrics wraps the Prometheus collectors used across the service.
type Metrics struct{}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRequest tracks a completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError tracks an HTTP error response.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	httpErrors.WithLabelValues(path, method, code).Inc()
}

// RecordOperation tracks a settlement core operation outcome, e.g.
// ("create_order", "success") or ("issue_refund", "forbidden").
func (m *Metrics) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	settlementOperations.WithLabelValues(operation, outcome).Inc()
}
