package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLM fallback outcomes.
const (
	FallbackSuccess   = "success"
	FallbackFailed    = "failed"
	FallbackThrottled = "throttled"
	FallbackDisabled  = "disabled"
)

func (m *Manager) initRouterMetrics() {
	m.decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "decisions_total",
		Help:      "Routing decisions by profile, label and deciding rule",
	}, []string{"profile", "label", "rule"})

	m.llmFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "llm_fallback_total",
		Help:      "LLM fallback classifications by outcome",
	}, []string{"profile", "outcome"})

	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "cache_lookups_total",
		Help:      "Decision cache lookups by result",
	}, []string{"profile", "result"})

	m.classifyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "classify_duration_seconds",
		Help:      "Time spent in Classify",
		Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 2, 5},
	}, []string{"profile"})

	m.registry.MustRegister(m.decisions, m.llmFallbacks, m.cacheLookups, m.classifyDuration)
}

// RecordDecision counts a routing decision. rule is the rule that decided
// the label, or "none".
func (m *Manager) RecordDecision(profile, label, rule string, took time.Duration) {
	if m == nil {
		return
	}
	if rule == "" {
		rule = "none"
	}
	m.decisions.WithLabelValues(profile, label, rule).Inc()
	m.classifyDuration.WithLabelValues(profile).Observe(took.Seconds())
}

// RecordLLMFallback counts one LLM fallback attempt.
func (m *Manager) RecordLLMFallback(profile, outcome string) {
	if m == nil {
		return
	}
	m.llmFallbacks.WithLabelValues(profile, outcome).Inc()
}

// RecordCacheLookup counts a decision cache hit or miss.
func (m *Manager) RecordCacheLookup(profile string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(profile, result).Inc()
}
