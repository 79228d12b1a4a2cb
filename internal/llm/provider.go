package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Provider is the single seam between the tutoring core and a hosted model.
// The router's fallback classifier and the misconception diagnoser are the
// only callers; both treat every error as recoverable.
type Provider interface {
	// Generate sends one prompt and returns the model output. When
	// req.Schema is set the provider asks for structured JSON and the
	// returned Content has already been validated against the schema.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt.
	System string

	// Messages is the prompt body. Classification sends a single user
	// message that already embeds a bounded conversation summary.
	Messages []Message

	// Schema, when set, is the JSON Schema the response must satisfy.
	Schema *Schema

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature in [0, 1]. Zero means provider default / deterministic.
	Temperature float64
}

// Message is a single prompt message.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies the schema; kebab-case, e.g. "route-classification".
	Name string

	// Description is sent to providers that support it.
	Description string

	// Definition is the JSON Schema document.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is the validated JSON object when a schema was requested,
	// otherwise the raw model text.
	Content json.RawMessage

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// DecodeJSON unmarshals resp.Content into v. Models that ignore structured
// output settings often wrap the object in a markdown fence, so a leading
// ```json / ``` fence and the closing fence are stripped first.
func DecodeJSON(resp *Response, v any) error {
	if resp == nil {
		return fmt.Errorf("decode LLM response: nil response")
	}
	body := bytes.TrimSpace(resp.Content)
	body = bytes.TrimPrefix(body, []byte("```json"))
	body = bytes.TrimPrefix(body, []byte("```"))
	body = bytes.TrimSuffix(body, []byte("```"))
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fmt.Errorf("decode LLM response: empty content")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode LLM response: %w", err)
	}
	return nil
}

// finish validates content against the requested schema and assembles the
// normalized Response. A truncated structured response is reported as
// ErrMaxTokensExceeded since it can never validate.
func finish(req Request, content json.RawMessage, usage Usage, model, stop string) (*Response, error) {
	if req.Schema != nil {
		if stop == "max_tokens" {
			return nil, &ErrMaxTokensExceeded{Content: content}
		}
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{Content: content, Usage: usage, Model: model, StopReason: stop}, nil
}

// resolveModel maps a friendly model name to a provider model ID. Unknown
// names pass through so full model IDs work too.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
