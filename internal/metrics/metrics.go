package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	InboundMessages  *prometheus.CounterVec
	OutboundMessages *prometheus.CounterVec
	GeminiRequests   *prometheus.CounterVec
	GeminiLatency    *prometheus.HistogramVec
	RAGQueries       *prometheus.CounterVec
	RAGLatency       *prometheus.HistogramVec
	StageTransitions *prometheus.CounterVec
	PaymentCallbacks *prometheus.CounterVec
	RateLimited      prometheus.Counter
	Errors           *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			InboundMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inbound_messages_total",
				Help:      "Total inbound WhatsApp messages processed.",
			}, []string{"stage"}),
			OutboundMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbound_messages_total",
				Help:      "Total outbound WhatsApp messages sent.",
			}, []string{"type"}),
			GeminiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gemini_requests_total",
				Help:      "Total Gemini API requests by operation and outcome.",
			}, []string{"operation", "status"}),
			GeminiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gemini_request_duration_seconds",
				Help:      "Latency distribution for Gemini API calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation", "status"}),
			RAGQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rag_queries_total",
				Help:      "Total RAG engine queries by mode and outcome.",
			}, []string{"mode", "status"}),
			RAGLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rag_query_duration_seconds",
				Help:      "Latency distribution for RAG engine queries.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"mode"}),
			StageTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_transitions_total",
				Help:      "Conversation stage transitions by source and target stage.",
			}, []string{"from", "to"}),
			PaymentCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_callbacks_total",
				Help:      "Payment callbacks by entity and verification outcome.",
			}, []string{"entity", "result"}),
			RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_messages_total",
				Help:      "Inbound messages rejected by the per-phone rate limiter.",
			}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.InboundMessages,
			metricsInstance.OutboundMessages,
			metricsInstance.GeminiRequests,
			metricsInstance.GeminiLatency,
			metricsInstance.RAGQueries,
			metricsInstance.RAGLatency,
			metricsInstance.StageTransitions,
			metricsInstance.PaymentCallbacks,
			metricsInstance.RateLimited,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
