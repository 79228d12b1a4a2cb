package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/abhisek/tutorpilot/internal/diagnosis"
	"github.com/abhisek/tutorpilot/internal/llm"
	"github.com/abhisek/tutorpilot/internal/metrics"
	"github.com/abhisek/tutorpilot/internal/router"
	"github.com/abhisek/tutorpilot/internal/store"
	"github.com/abhisek/tutorpilot/internal/tutor"
)

// deps is everything a command needs to run the tutoring pipeline.
type deps struct {
	backend  *store.Backend
	provider llm.Provider
	metrics  *metrics.Manager
	router   *router.Router
	tutor    *tutor.Service
}

func (d *deps) Close() error {
	if d.backend != nil {
		return d.backend.Close()
	}
	return nil
}

// openBackend opens the event log and the configured snapshot backend.
func openBackend(ctx context.Context) (*store.Backend, error) {
	b, err := store.OpenBackend(ctx, env.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return b, nil
}

// newProvider builds the configured LLM provider. LLM calls are recorded
// in the event log and in m. A nil provider means LLM features are off.
func newProvider(ctx context.Context, events store.EventRepo, m *metrics.Manager) llm.Provider {
	sink := llm.MultiSink(events, m)
	provider, err := llm.NewProvider(ctx, env.cfg.LLM, sink, env.logger.Logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Routing falls back to keyword rules.")
		return nil
	}
	return provider
}

func newRouter(provider llm.Provider, m *metrics.Manager) (*router.Router, error) {
	opts := []router.Option{
		router.WithLogger(env.logger.Logger),
		router.WithMetrics(m),
	}
	if provider != nil {
		opts = append(opts, router.WithProvider(provider))
	}
	return router.New(env.cfg.Router, opts...)
}

// buildDeps opens the store and wires the router, diagnosis and tutor
// service. When persist is false nothing is opened and the tutor keeps
// state in memory only.
func buildDeps(ctx context.Context, persist bool) (*deps, error) {
	d := &deps{metrics: metrics.New()}

	var events store.EventRepo
	var snapshots store.SnapshotRepo
	if persist {
		b, err := openBackend(ctx)
		if err != nil {
			return nil, err
		}
		d.backend = b
		events, snapshots = b.Events, b.Snapshots
	}

	d.provider = newProvider(ctx, events, d.metrics)

	r, err := newRouter(d.provider, d.metrics)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.router = r

	svc, err := tutor.NewService(tutor.Deps{
		Router:    r,
		Diagnosis: diagnosis.NewService(d.provider, env.logger.Logger),
		Snapshots: snapshots,
		Events:    events,
		Metrics:   d.metrics,
		Mastery:   env.cfg.Mastery,
		Logger:    env.logger.Logger,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	d.tutor = svc
	return d, nil
}
