// Package metrics provides Prometheus instrumentation for routing, mastery
// and LLM calls. A nil *Manager is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tutorpilot"

// Manager owns a private registry and every collector.
type Manager struct {
	registry *prometheus.Registry

	// Routing
	decisions        *prometheus.CounterVec
	llmFallbacks     *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	classifyDuration *prometheus.HistogramVec

	// Mastery
	masteryUpdates   *prometheus.CounterVec
	stateTransitions *prometheus.CounterVec
	misconceptions   *prometheus.CounterVec

	// LLM
	llmRequests *prometheus.CounterVec
	llmTokens   *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
}

// New creates a Manager with its own registry, including the Go runtime
// and process collectors.
func New() *Manager {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Manager{registry: registry}
	m.initRouterMetrics()
	m.initMasteryMetrics()
	m.initLLMMetrics()
	return m
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Manager) Serve(ctx context.Context, addr string) error {
	if m == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
