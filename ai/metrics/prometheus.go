// Package metrics provides Prometheus metrics export for feedlens.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feedlens"

// PrometheusExporter exports service metrics in Prometheus format.
// A nil exporter is valid and records nothing.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Feedback metrics
	feedbackCreated *prometheus.CounterVec

	// AI metrics
	classifications *prometheus.CounterVec
	summaries       *prometheus.CounterVec

	// LLM metrics
	llmRequests   *prometheus.CounterVec
	llmTokensUsed *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec

	// HTTP metrics
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{
		registry: registry,
	}

	e.feedbackCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "created_total",
			Help:      "Total number of feedback items stored",
		},
		[]string{"source", "sentiment"},
	)

	e.classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "classifications_total",
			Help:      "Total number of sentiment classifications by method",
		},
		[]string{"method"},
	)

	e.summaries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "summaries_total",
			Help:      "Total number of summary requests by outcome",
		},
		[]string{"status"},
	)

	e.llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "status"},
	)

	e.llmTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"model", "token_type"},
	)

	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "llm_latency_seconds",
			Help:      "LLM request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model", "provider"},
	)

	e.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	e.httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"method", "route"},
	)

	// Register all metrics
	registry.MustRegister(
		e.feedbackCreated,
		e.classifications,
		e.summaries,
		e.llmRequests,
		e.llmTokensUsed,
		e.llmLatency,
		e.httpRequests,
		e.httpLatency,
	)

	return e
}

// RecordFeedbackCreated counts a stored feedback item.
func (e *PrometheusExporter) RecordFeedbackCreated(source, sentiment string) {
	if e == nil {
		return
	}
	e.feedbackCreated.WithLabelValues(source, sentiment).Inc()
}

// RecordClassification counts a classification by method: llm, fallback or skipped.
func (e *PrometheusExporter) RecordClassification(method string) {
	if e == nil {
		return
	}
	e.classifications.WithLabelValues(method).Inc()
}

// RecordSummary counts a summary request by status.
func (e *PrometheusExporter) RecordSummary(status string) {
	if e == nil {
		return
	}
	e.summaries.WithLabelValues(status).Inc()
}

// RecordLLMCall records latency, outcome and token usage of one LLM request.
func (e *PrometheusExporter) RecordLLMCall(provider, model string, latency time.Duration, promptTokens, completionTokens int, err error) {
	if e == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	e.llmRequests.WithLabelValues(provider, status).Inc()
	e.llmLatency.WithLabelValues(model, provider).Observe(latency.Seconds())
	if promptTokens > 0 {
		e.llmTokensUsed.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		e.llmTokensUsed.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordHTTPRequest records an HTTP request by route template.
func (e *PrometheusExporter) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	if e == nil {
		return
	}
	e.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	e.httpLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

// Handler returns the HTTP handler for Prometheus metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
