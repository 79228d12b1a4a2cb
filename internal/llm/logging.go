package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/tutorpilot/internal/logging"
	"github.com/abhisek/tutorpilot/internal/store"
)

type purposeKey struct{}

// WithPurpose labels LLM calls made with ctx, e.g. "route-classify".
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the purpose label attached to ctx, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// LLMEventSink is the subset of store.EventRepo the logging decorator needs.
type LLMEventSink interface {
	AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error
}

// MultiSink fans an event out to every non-nil sink and joins their errors.
func MultiSink(sinks ...LLMEventSink) LLMEventSink {
	var live multiSink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return live
}

type multiSink []LLMEventSink

func (m multiSink) AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error {
	var errs []error
	for _, s := range m {
		if err := s.AppendLLMRequest(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoggingProvider records every call as a structured log line and, when a
// sink is configured, as a persisted LLM request event.
type LoggingProvider struct {
	inner  Provider
	name   string
	sink   LLMEventSink
	logger *slog.Logger
}

// WithLogging wraps p. Either sink or logger may be nil.
func WithLogging(p Provider, providerName string, sink LLMEventSink, logger *slog.Logger) Provider {
	return &LoggingProvider{inner: p, name: providerName, sink: sink, logger: logging.OrDiscard(logger)}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)
	latency := time.Since(start)

	data := store.LLMRequestEventData{
		Provider:    l.name,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: renderRequest(req),
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		data.ResponseBody = string(resp.Content)
	}
	if err != nil {
		data.ErrorMessage = err.Error()
		l.logger.WarnContext(ctx, "llm request failed",
			"provider", l.name, "model", data.Model, "purpose", purpose,
			"latency_ms", data.LatencyMs, "error", err)
	} else {
		l.logger.DebugContext(ctx, "llm request",
			"provider", l.name, "model", data.Model, "purpose", purpose,
			"latency_ms", data.LatencyMs,
			"input_tokens", data.InputTokens, "output_tokens", data.OutputTokens)
	}

	if l.sink != nil {
		// The caller's ctx may already be past its deadline (that is often
		// why the call failed); the event write gets its own short budget.
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		if logErr := l.sink.AppendLLMRequest(writeCtx, data); logErr != nil {
			l.logger.Warn("failed to persist llm request event", "error", logErr)
		}
		cancel()
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// renderRequest builds the human-readable request body shown by
// `tutorpilot llm view`.
func renderRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
