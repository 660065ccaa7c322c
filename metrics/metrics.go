package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	GeneratorCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generator_call_latency_ms",
			Help:    "Backlog generator call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		},
		[]string{"kind", "status"},
	)

	SuggestionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_suggestion_count",
			Help: "Total number of AI suggestions by pipeline stage",
		},
		[]string{"kind", "stage"}, // stage: parsed, deduplicated, confirmed
	)

	BoardOperationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sprint_board_operation_count",
			Help: "Total number of sprint board operations",
		},
		[]string{"operation", "outcome"},
	)

	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue"},
	)
)

func RecordGeneratorLatency(kind, status string, duration time.Duration) {
	GeneratorCallLatency.WithLabelValues(kind, status).Observe(float64(duration.Milliseconds()))
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func CountSuggestions(kind, stage string, n int) {
	SuggestionCount.WithLabelValues(kind, stage).Add(float64(n))
}

func CountBoardOperation(operation, outcome string) {
	BoardOperationCount.WithLabelValues(operation, outcome).Inc()
}
