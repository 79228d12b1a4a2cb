package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/abhisek/tutorpilot/internal/store"
)

func TestRouterMetrics(t *testing.T) {
	m := New()

	m.RecordDecision("modes", "educate", "topic-educate", 2*time.Millisecond)
	m.RecordDecision("modes", "educate", "topic-educate", time.Millisecond)
	m.RecordDecision("modes", "navigate", "", time.Millisecond)
	m.RecordLLMFallback("modes", FallbackThrottled)
	m.RecordCacheLookup("modes", true)
	m.RecordCacheLookup("modes", false)
	m.RecordCacheLookup("modes", false)

	if got := testutil.ToFloat64(m.decisions.WithLabelValues("modes", "educate", "topic-educate")); got != 2 {
		t.Errorf("educate decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.decisions.WithLabelValues("modes", "navigate", "none")); got != 1 {
		t.Errorf("empty rule should be recorded as none, got %v", got)
	}
	if got := testutil.ToFloat64(m.llmFallbacks.WithLabelValues("modes", FallbackThrottled)); got != 1 {
		t.Errorf("throttled fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("modes", "miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.classifyDuration); got != 1 {
		t.Errorf("classify duration series = %d, want 1", got)
	}
}

func TestMasteryMetrics(t *testing.T) {
	m := New()

	m.RecordMasteryUpdate(true, "unknown", "normal")
	m.RecordMasteryUpdate(true, "normal", "normal")
	m.RecordMasteryUpdate(false, "normal", "struggling")
	m.RecordMisconception("regex")

	if got := testutil.ToFloat64(m.masteryUpdates.WithLabelValues("correct")); got != 2 {
		t.Errorf("correct updates = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.stateTransitions); got != 2 {
		t.Errorf("transition series = %d, want 2 (no self-transition)", got)
	}
	if got := testutil.ToFloat64(m.misconceptions.WithLabelValues("regex")); got != 1 {
		t.Errorf("misconceptions = %v, want 1", got)
	}
}

func TestLLMSink(t *testing.T) {
	m := New()
	ctx := context.Background()

	_ = m.AppendLLMRequest(ctx, store.LLMRequestEventData{
		Provider: "openai", Purpose: "route-classify", InputTokens: 120, OutputTokens: 30, LatencyMs: 400, Success: true,
	})
	_ = m.AppendLLMRequest(ctx, store.LLMRequestEventData{
		Provider: "openai", Purpose: "route-classify", LatencyMs: 50, Success: false,
	})

	if got := testutil.ToFloat64(m.llmRequests.WithLabelValues("openai", "route-classify", "failure")); got != 1 {
		t.Errorf("failed requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.llmTokens.WithLabelValues("openai", "input")); got != 120 {
		t.Errorf("input tokens = %v, want 120", got)
	}
}

func TestNilManagerIsNoOp(t *testing.T) {
	var m *Manager
	m.RecordDecision("modes", "educate", "x", time.Millisecond)
	m.RecordLLMFallback("modes", FallbackFailed)
	m.RecordCacheLookup("modes", true)
	m.RecordMasteryUpdate(true, "a", "b")
	m.RecordMisconception("regex")
	if err := m.AppendLLMRequest(context.Background(), store.LLMRequestEventData{}); err != nil {
		t.Fatalf("nil manager returned error: %v", err)
	}
	if m.Registry() != nil {
		t.Error("nil manager should have no registry")
	}

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordDecision("tasks", "solve", "keyword", time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "tutorpilot_router_decisions_total") {
		t.Error("decisions counter missing from exposition")
	}
}
