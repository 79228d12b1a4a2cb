// Package router classifies student messages into a routing label using a
// layered, data-driven rule chain with an optional LLM fallback.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/abhisek/tutorpilot/internal/llm"
	"github.com/abhisek/tutorpilot/internal/logging"
	"github.com/abhisek/tutorpilot/internal/metrics"
)

const routerTracerName = "tutorpilot.router"

const (
	spanClassify    = "router.classify"
	spanLLMFallback = "router.llm_fallback"
)

func routerTracer() trace.Tracer {
	return otel.Tracer(routerTracerName)
}

// Fixed confidences of the built-in rules.
const (
	FollowUpConfidence = 0.85
	KeywordConfidence  = 0.9
)

// Router turns a query plus conversation history into a Decision. It is
// safe for concurrent use.
type Router struct {
	cfg      Config
	profile  atomic.Pointer[compiledProfile]
	cache    *DecisionCache
	provider llm.Provider
	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  *metrics.Manager

	initial *Profile
}

// Option configures a Router.
type Option func(*Router)

// WithProvider enables the LLM fallback.
func WithProvider(p llm.Provider) Option {
	return func(r *Router) { r.provider = p }
}

// WithLogger sets the logger. Nil discards.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = logging.OrDiscard(l) }
}

// WithMetrics records decisions on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Router) { r.metrics = m }
}

// WithProfile uses p instead of the configured profile.
func WithProfile(p *Profile) Option {
	return func(r *Router) { r.initial = p }
}

// New creates a Router. The profile comes from WithProfile, else
// cfg.ProfilePath, else the built-in cfg.Profile.
func New(cfg Config, opts ...Option) (*Router, error) {
	r := &Router{cfg: cfg, logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}

	p := r.initial
	if p == nil {
		var err error
		switch {
		case cfg.ProfilePath != "":
			p, err = LoadProfileFile(cfg.ProfilePath)
		case cfg.Profile != "":
			p, err = BuiltinProfile(cfg.Profile)
		default:
			p, err = BuiltinProfile(ProfileModes)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := r.SetProfile(p); err != nil {
		return nil, err
	}

	cache, err := NewDecisionCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	r.cache = cache

	limit, burst := rate.Inf, 0
	if cfg.LLMRatePerSec > 0 {
		limit, burst = rate.Limit(cfg.LLMRatePerSec), max(cfg.LLMBurst, 1)
	}
	r.limiter = rate.NewLimiter(limit, burst)
	return r, nil
}

// SetProfile compiles p and makes it the active profile. Cached decisions
// made under the previous profile are kept.
func (r *Router) SetProfile(p *Profile) error {
	cp, err := compileProfile(p)
	if err != nil {
		return err
	}
	r.profile.Store(cp)
	r.logger.Info("routing profile loaded", "profile", p.Name, "version", p.Version)
	return nil
}

// Profile returns the active profile.
func (r *Router) Profile() *Profile {
	return r.profile.Load().Profile
}

// ResetCache drops every cached decision.
func (r *Router) ResetCache() {
	r.cache.Purge()
}

// CacheLen returns the number of cached decisions.
func (r *Router) CacheLen() int {
	return r.cache.Len()
}

// Classify routes query. It never fails: LLM errors, timeouts and malformed
// responses degrade to a deterministic keyword decision.
func (r *Router) Classify(ctx context.Context, query string, history []Turn) Decision {
	start := time.Now()
	p := r.profile.Load()

	ctx, span := routerTracer().Start(ctx, spanClassify,
		trace.WithAttributes(attribute.String("router.profile", p.Name)))
	defer span.End()

	d := r.classify(ctx, p, query, history)

	span.SetAttributes(
		attribute.String("router.label", string(d.Label)),
		attribute.Float64("router.confidence", d.Confidence),
		attribute.String("router.rule", d.DecidingRule()),
		attribute.Bool("router.cached", d.Cached),
		attribute.Bool("router.degraded", d.Degraded),
	)
	r.metrics.RecordDecision(p.Name, string(d.Label), d.DecidingRule(), time.Since(start))
	r.logger.DebugContext(ctx, "query classified",
		"profile", p.Name,
		"label", d.Label,
		"confidence", d.Confidence,
		"rules", d.Rules,
		"follow_up", d.IsFollowUp,
		"cached", d.Cached,
		"degraded", d.Degraded,
	)
	return d
}

func (r *Router) classify(ctx context.Context, p *compiledProfile, query string, history []Turn) Decision {
	text := normalize(query)
	if !meaningful(text) {
		return r.finish(p, query, Decision{
			Label:     p.EmptyLabel,
			Reasoning: "empty or unparseable query",
			Rules:     []string{RuleEmpty},
		})
	}

	if r.cache != nil {
		d, ok := r.cache.Get(text)
		r.metrics.RecordCacheLookup(p.Name, ok)
		if ok {
			return d
		}
	}

	s := p.extract(text)
	d := r.finish(p, query, r.decide(ctx, p, s, query, history))
	if !d.Degraded {
		r.cache.Add(text, d)
	}
	return d
}

// decide runs the rule chain. The first rule that produces a label wins.
func (r *Router) decide(ctx context.Context, p *compiledProfile, s signals, query string, history []Turn) Decision {
	d := Decision{Scores: s.scores, Topics: s.topics}

	if rule, ok := p.hardRule(s); ok {
		d.Label = rule.Label
		d.Confidence = rule.Confidence
		d.Reasoning = fmt.Sprintf("matched %s rule", rule.Name)
		d.Rules = append(d.Rules, RuleHard)
		return d
	}

	if fu, ok := p.detectFollowUp(s, history); ok {
		d.Label = fu.label
		d.Confidence = FollowUpConfidence
		d.Reasoning = "continuing previous mode"
		d.IsFollowUp = true
		d.Rules = append(d.Rules, RuleFollowUp)
		if fu.frustrated {
			d.Frustrated = true
			d.Reasoning += "; student signals confusion, clarify briefly"
			d.Rules = append(d.Rules, RuleFrustrated)
		}
		return d
	}

	if label, ok := p.strongWinner(s); ok {
		d.Label = label
		d.Confidence = KeywordConfidence
		d.Reasoning = fmt.Sprintf("%d %s keywords outweigh the rest", s.scores[label], label)
		d.Rules = append(d.Rules, RuleKeywords)
		return d
	}

	if rule, ok := p.disambiguate(s); ok {
		d.Label = rule.Label
		d.Confidence = rule.Confidence
		d.Reasoning = fmt.Sprintf("topic %q with %s keywords", s.topics[0], rule.Keyword)
		d.Rules = append(d.Rules, RuleTopic)
		return d
	}

	return r.fallback(ctx, p, s, query, history, d)
}

// fallback asks the LLM and, when that is unavailable or fails, applies
// the deterministic answer.
func (r *Router) fallback(ctx context.Context, p *compiledProfile, s signals, query string, history []Turn, d Decision) Decision {
	var cause string
	switch {
	case r.provider == nil:
		cause = "no LLM provider configured"
		r.metrics.RecordLLMFallback(p.Name, metrics.FallbackDisabled)
	case !r.limiter.Allow():
		cause = "LLM fallback rate limited"
		r.metrics.RecordLLMFallback(p.Name, metrics.FallbackThrottled)
	default:
		ctx, span := routerTracer().Start(ctx, spanLLMFallback)
		pick, err := r.classifyWithLLM(ctx, p, query, history)
		if err == nil {
			span.End()
			r.metrics.RecordLLMFallback(p.Name, metrics.FallbackSuccess)
			d.Label = pick.Mode
			d.Confidence = pick.Confidence
			d.Reasoning = pick.Reasoning
			d.UsedLLM = true
			d.Rules = append(d.Rules, RuleLLM)
			return d
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()

		r.metrics.RecordLLMFallback(p.Name, metrics.FallbackFailed)
		r.logger.WarnContext(ctx, "LLM classification failed", "profile", p.Name, "error", err)
		cause = err.Error()
		d.UsedLLM = true
	}

	d.Label, d.Confidence = p.deterministic(s)
	d.Reasoning = llmFailedReasoning + ": " + cause
	d.Degraded = true
	d.Rules = append(d.Rules, RuleFallback)
	return d
}

// finish applies the confirmation threshold and the task payload.
func (r *Router) finish(p *compiledProfile, query string, d Decision) Decision {
	d.Profile = p.Name
	if d.Confidence < r.cfg.ConfirmThreshold {
		d.ShouldConfirm = true
		d.Rules = append(d.Rules, RuleConfirm)
	}
	d.Payload = payloadFor(d, query)
	return d
}
