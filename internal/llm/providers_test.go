package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"
)

const classificationJSON = `{"mode":"educate","confidence":0.8,"reasoning":"asks for an explanation"}`

func classificationRequest() Request {
	return Request{
		System:    "Classify the student's message.",
		Messages:  []Message{{Role: RoleUser, Content: "what is a gradient?"}},
		Schema:    testSchema,
		MaxTokens: 128,
	}
}

func newTestAnthropic(t *testing.T, status int, body any) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
	return &AnthropicProvider{client: &client, model: "claude-haiku-4-5-20251001"}
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 40, "output_tokens": 12},
	}
}

func anthropicError(kind string) map[string]any {
	return map[string]any{"type": "error", "error": map[string]any{"type": kind, "message": kind}}
}

func TestAnthropicProvider_Classification(t *testing.T) {
	p := newTestAnthropic(t, http.StatusOK, anthropicMessage(classificationJSON, "end_turn"))

	resp, err := p.Generate(context.Background(), classificationRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.TotalTokens != 52 {
		t.Fatalf("expected 52 total tokens, got %d", resp.Usage.TotalTokens)
	}
	var out struct {
		Mode string `json:"mode"`
	}
	if err := DecodeJSON(resp, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Mode != "educate" {
		t.Fatalf("expected educate, got %q", out.Mode)
	}
}

func TestAnthropicProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   string
		check  func(error) bool
	}{
		{"rate limit", http.StatusTooManyRequests, "rate_limit_error", func(err error) bool {
			var rl *ErrRateLimit
			return errors.As(err, &rl)
		}},
		{"overloaded", http.StatusServiceUnavailable, "overloaded_error", func(err error) bool {
			var u *ErrProviderUnavailable
			return errors.As(err, &u)
		}},
		{"bad key", http.StatusUnauthorized, "authentication_error", func(err error) bool {
			var r *ErrRejected
			return errors.As(err, &r) && r.Status == http.StatusUnauthorized
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestAnthropic(t, tt.status, anthropicError(tt.kind))
			_, err := p.Generate(context.Background(), classificationRequest())
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error mapping: %T %v", err, err)
			}
		})
	}
}

func TestAnthropicProvider_TruncatedStructuredOutput(t *testing.T) {
	p := newTestAnthropic(t, http.StatusOK, anthropicMessage(`{"mode":"edu`, "max_tokens"))

	_, err := p.Generate(context.Background(), classificationRequest())
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T %v", err, err)
	}
}

func newTestOpenAI(t *testing.T, status int, body any) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	return p
}

func TestOpenAIProvider_Classification(t *testing.T) {
	p := newTestOpenAI(t, http.StatusOK, map[string]any{
		"id":    "chatcmpl-test",
		"model": "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": classificationJSON},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 10, "total_tokens": 40},
	})

	resp, err := p.Generate(context.Background(), classificationRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Model != "gpt-4o-mini" || resp.StopReason != "end" {
		t.Fatalf("unexpected response metadata: %+v", resp)
	}
	if resp.Usage.TotalTokens != 40 {
		t.Fatalf("expected 40 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAIProvider_SchemaViolation(t *testing.T) {
	p := newTestOpenAI(t, http.StatusOK, map[string]any{
		"model": "gpt-4o-mini",
		"choices": []map[string]any{{
			"message":       map[string]any{"role": "assistant", "content": `{"mode":"wander","confidence":0.5}`},
			"finish_reason": "stop",
		}},
	})

	_, err := p.Generate(context.Background(), classificationRequest())
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T %v", err, err)
	}
}

func TestOpenAIProvider_RateLimit(t *testing.T) {
	p := newTestOpenAI(t, http.StatusTooManyRequests, map[string]any{
		"error": map[string]any{"message": "slow down", "type": "rate_limit_error"},
	})

	_, err := p.Generate(context.Background(), classificationRequest())
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %T %v", err, err)
	}
}

func TestOpenRouterProvider_Defaults(t *testing.T) {
	if _, err := NewOpenRouterProvider(OpenRouterConfig{}); err == nil {
		t.Fatal("expected error without API key")
	}
	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "or-key", Model: "google/gemini-2.0-flash-exp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "google/gemini-2.0-flash-exp" {
		t.Fatalf("unexpected model: %q", p.ModelID())
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name   string
		models map[string]string
		want   string
	}{
		{"claude-haiku", anthropicModels, "claude-haiku-4-5-20251001"},
		{"gemini-flash", geminiModels, "gemini-2.0-flash"},
		{"gpt-4o-mini", openaiModels, "gpt-4o-mini"},
		{"some-custom-model", geminiModels, "some-custom-model"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.name, tt.models); got != tt.want {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(testSchema.Definition)
	if s.Type != genai.TypeObject {
		t.Fatalf("expected object, got %v", s.Type)
	}
	mode := s.Properties["mode"]
	if mode == nil || len(mode.Enum) != 2 {
		t.Fatalf("expected mode enum with 2 values, got %+v", mode)
	}
	conf := s.Properties["confidence"]
	if conf == nil || conf.Minimum == nil || *conf.Maximum != 1 {
		t.Fatalf("expected bounded confidence, got %+v", conf)
	}
	if len(s.Required) != 2 {
		t.Fatalf("expected 2 required fields, got %v", s.Required)
	}
}

func TestGeminiSchema_NullableUnion(t *testing.T) {
	s := geminiSchema(map[string]any{"type": []any{"string", "null"}})
	if s.Type != genai.TypeString {
		t.Fatalf("expected string, got %v", s.Type)
	}
	if s.Nullable == nil || !*s.Nullable {
		t.Fatal("expected nullable schema")
	}
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	if c == nil {
		t.Fatal("expected pricing for gpt-4o-mini")
	}
	if got := c.Cost(1_000_000, 1_000_000); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("expected 0.75, got %v", got)
	}
	if LookupCost("unknown-model") != nil {
		t.Fatal("expected nil for unknown model")
	}
}
