package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abhisek/tutorpilot/internal/store"
)

func (m *Manager) initLLMMetrics() {
	m.llmRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "LLM requests by provider, purpose and status",
	}, []string{"provider", "purpose", "status"})

	m.llmTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "tokens_total",
		Help:      "LLM tokens by provider and direction",
	}, []string{"provider", "direction"})

	m.llmLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "LLM request latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"provider"})

	m.registry.MustRegister(m.llmRequests, m.llmTokens, m.llmLatency)
}

// AppendLLMRequest records an LLM call. It has the same shape as the event
// log sink so a Manager can sit beside the store behind llm.MultiSink.
func (m *Manager) AppendLLMRequest(_ context.Context, ev store.LLMRequestEventData) error {
	if m == nil {
		return nil
	}
	status := "success"
	if !ev.Success {
		status = "failure"
	}
	m.llmRequests.WithLabelValues(ev.Provider, ev.Purpose, status).Inc()
	m.llmTokens.WithLabelValues(ev.Provider, "input").Add(float64(ev.InputTokens))
	m.llmTokens.WithLabelValues(ev.Provider, "output").Add(float64(ev.OutputTokens))
	m.llmLatency.WithLabelValues(ev.Provider).Observe((time.Duration(ev.LatencyMs) * time.Millisecond).Seconds())
	return nil
}
