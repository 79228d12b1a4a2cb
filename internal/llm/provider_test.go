package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/tutorpilot/internal/store"
)

func TestMockProvider_ServesQueueInOrder(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	first, err := mock.Generate(context.Background(), Request{System: "sys"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first.Content) != `{"a":1}` || first.Usage.InputTokens != 10 {
		t.Fatalf("unexpected first response: %+v", first)
	}
	second, err := mock.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(second.Content) != `{"b":2}` {
		t.Fatalf("unexpected second response: %s", second.Content)
	}

	_, err = mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable once drained, got %T", err)
	}
	if mock.CallCount() != 3 || mock.Calls[0].System != "sys" {
		t.Fatalf("calls not recorded: %d", mock.CallCount())
	}
}

func TestMockProvider_DelayHonorsContext(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`), Delay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mock.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `{"mode":"navigate"}`, "navigate", false},
		{"json fence", "```json\n{\"mode\":\"educate\"}\n```", "educate", false},
		{"bare fence", "```\n{\"mode\":\"educate\"}\n```", "educate", false},
		{"empty", "  ", "", true},
		{"prose", "I think navigate", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Mode string `json:"mode"`
			}
			err := DecodeJSON(&Response{Content: json.RawMessage(tt.content)}, &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if out.Mode != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, out.Mode)
			}
		})
	}
	if err := DecodeJSON(nil, &struct{}{}); err == nil {
		t.Fatal("expected error for nil response")
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}
	ctx = WithPurpose(ctx, "route-classify")
	if p := PurposeFrom(ctx); p != "route-classify" {
		t.Fatalf("expected 'route-classify', got %q", p)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"none", Config{Provider: ProviderNone}, false},
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "k"}}, false},
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"openrouter with key", Config{Provider: ProviderOpenRouter, OpenRouter: OpenRouterConfig{APIKey: "k"}}, false},
		{"unknown provider", Config{Provider: "llama"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	if _, found := DiscoverConfig(DefaultConfig()); found {
		t.Fatal("expected no provider without keys")
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENROUTER_API_KEY", "sk-or")
	cfg, found := DiscoverConfig(DefaultConfig())
	if !found || cfg.Provider != ProviderAnthropic || cfg.Anthropic.APIKey != "sk-ant" {
		t.Fatalf("expected anthropic to win over openrouter, got %+v", cfg)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig(), nil, nil)
	if err != nil || p != nil {
		t.Fatalf("provider none should yield (nil, nil), got (%v, %v)", p, err)
	}

	cfg := DefaultConfig()
	cfg.Provider = ProviderMock
	p, err = NewProvider(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("expected mock model, got %q", p.ModelID())
	}

	cfg.Provider = ProviderOpenAI
	if _, err := NewProvider(context.Background(), cfg, nil, nil); err == nil {
		t.Fatal("expected validation error for openai without key")
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
}

func (s *recordingSink) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, data)
	return nil
}

func TestLoggingProvider_PersistsEvents(t *testing.T) {
	sink := &recordingSink{}
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(classificationJSON), Usage: Usage{InputTokens: 20, OutputTokens: 8}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
	)
	p := WithLogging(mock, "mock", sink, nil)
	ctx := WithPurpose(context.Background(), "route-classify")

	if _, err := p.Generate(ctx, classificationRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, classificationRequest()); err == nil {
		t.Fatal("expected rate limit error to pass through")
	}

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.events))
	}
	okEvt, failEvt := sink.events[0], sink.events[1]
	if !okEvt.Success || okEvt.Purpose != "route-classify" || okEvt.InputTokens != 20 {
		t.Fatalf("unexpected success event: %+v", okEvt)
	}
	if okEvt.ResponseBody != classificationJSON {
		t.Fatalf("response body not captured: %q", okEvt.ResponseBody)
	}
	if !strings.Contains(okEvt.RequestBody, "[system]") || !strings.Contains(okEvt.RequestBody, "[schema: test-route-classification]") {
		t.Fatalf("request body missing sections:\n%s", okEvt.RequestBody)
	}
	if failEvt.Success || !strings.Contains(failEvt.ErrorMessage, "rate limited") {
		t.Fatalf("unexpected failure event: %+v", failEvt)
	}
}

type failingSink struct{}

func (failingSink) AppendLLMRequest(context.Context, store.LLMRequestEventData) error {
	return errors.New("disk full")
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sink := MultiSink(a, nil, failingSink{}, b)

	err := sink.AppendLLMRequest(context.Background(), store.LLMRequestEventData{Purpose: "route-classify"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined error from failing sink, got %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("every live sink should receive the event: a=%d b=%d", len(a.events), len(b.events))
	}
}
