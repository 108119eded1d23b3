package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics holds the instruments recorded around vendor calls
type PrometheusMetrics struct {
	gatherer prometheus.Gatherer

	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	LatencyHistogram *prometheus.HistogramVec

	// Token metrics
	TokensInputTotal  *prometheus.CounterVec
	TokensOutputTotal *prometheus.CounterVec

	// Cost metrics
	CostTotal *prometheus.CounterVec

	// Assistant metrics
	AssistantActionsTotal *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitStateChangesTotal *prometheus.CounterVec
}

// NewPrometheusMetrics registers the instruments on reg
func NewPrometheusMetrics(reg *prometheus.Registry) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		gatherer: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of dispatched prompts",
			},
			[]string{"provider", "tool", "model", "status"},
		),

		LatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_latency_seconds",
				Help:    "Dispatch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "tool", "model"},
		),

		TokensInputTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_input_total",
				Help: "Total number of prompt tokens",
			},
			[]string{"provider", "model"},
		),

		TokensOutputTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_output_total",
				Help: "Total number of completion tokens",
			},
			[]string{"provider", "model"},
		),

		CostTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_cost_total",
				Help: "Total cost of vendor calls",
			},
			[]string{"provider", "model", "currency"},
		),

		AssistantActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_assistant_actions_total",
				Help: "Total number of assistant actions",
			},
			[]string{"provider", "action", "status"},
		),

		CircuitStateChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_circuit_state_changes_total",
				Help: "Total number of circuit breaker transitions",
			},
			[]string{"breaker", "to"},
		),
	}
}

// RecordRequest records a request metric
func (m *PrometheusMetrics) RecordRequest(provider, tool, model, status string) {
	m.RequestsTotal.WithLabelValues(provider, tool, model, status).Inc()
}

// RecordLatency records a latency metric
func (m *PrometheusMetrics) RecordLatency(provider, tool, model string, duration time.Duration) {
	m.LatencyHistogram.WithLabelValues(provider, tool, model).Observe(duration.Seconds())
}

// RecordTokens records token metrics
func (m *PrometheusMetrics) RecordTokens(provider, model string, inputTokens, outputTokens int) {
	if inputTokens > 0 {
		m.TokensInputTotal.WithLabelValues(provider, model).Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.TokensOutputTotal.WithLabelValues(provider, model).Add(float64(outputTokens))
	}
}

// RecordCost records a cost metric
func (m *PrometheusMetrics) RecordCost(provider, model, currency string, cost float64) {
	if cost > 0 {
		m.CostTotal.WithLabelValues(provider, model, currency).Add(cost)
	}
}

// RecordAssistantAction records one assistant action outcome
func (m *PrometheusMetrics) RecordAssistantAction(provider, action, status string) {
	m.AssistantActionsTotal.WithLabelValues(provider, action, status).Inc()
}

// RecordCircuitStateChange records a circuit breaker transition
func (m *PrometheusMetrics) RecordCircuitStateChange(breaker, to string) {
	m.CircuitStateChangesTotal.WithLabelValues(breaker, to).Inc()
}

// Handler serves the registered metrics in the Prometheus text format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
