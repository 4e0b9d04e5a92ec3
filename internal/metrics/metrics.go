package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilterResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vettavista_filter_results_total",
			Help: "Filter verdicts by stage and status",
		},
		[]string{"filter_type", "status"},
	)

	FilterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "vettavista_filter_duration_seconds",
			Help: "Duration of filter requests in seconds",
		},
		[]string{"filter_type"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vettavista_cache_lookups_total",
			Help: "Job cache lookups by namespace and outcome",
		},
		[]string{"namespace", "outcome"},
	)

	EmbeddingLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vettavista_embedding_lookups_total",
			Help: "Embedding lookups by source",
		},
		[]string{"source"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vettavista_llm_requests_total",
			Help: "LLM calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	ApplicationOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vettavista_application_operations_total",
			Help: "Application workflow operations by name and result",
		},
		[]string{"operation", "result"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vettavista_active_sessions",
			Help: "Number of registered application sessions",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vettavista_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	WebsocketConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vettavista_websocket_connections",
			Help: "Open websocket connections per hub",
		},
		[]string{"hub"},
	)
)

// Result maps an error to a "success" or "error" label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
