package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

var testSchema = &Schema{
	Name:        "test-route-classification",
	Description: "Mode classification used by the llm package tests",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mode":       map[string]any{"type": "string", "enum": []string{"navigate", "educate"}},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"reasoning":  map[string]any{"type": "string"},
		},
		"required":             []string{"mode", "confidence"},
		"additionalProperties": false,
	},
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", classificationJSON, false},
		{"optional reasoning omitted", `{"mode":"navigate","confidence":0.6}`, false},
		{"missing confidence", `{"mode":"navigate"}`, true},
		{"confidence out of range", `{"mode":"navigate","confidence":1.4}`, true},
		{"unknown mode", `{"mode":"wander","confidence":0.5}`, true},
		{"wrong type", `{"mode":"navigate","confidence":"high"}`, true},
		{"extra property", `{"mode":"navigate","confidence":0.5,"task":"solve"}`, true},
		{"malformed", `{"mode":`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(testSchema, json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var inv *ErrInvalidResponse
				if !errors.As(err, &inv) {
					t.Fatalf("expected ErrInvalidResponse, got %T", err)
				}
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`not json`)); err != nil {
		t.Fatalf("nil schema should accept anything, got %v", err)
	}
}

func TestCompileSchema_Cached(t *testing.T) {
	a, err := compileSchema(testSchema)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	b, err := compileSchema(testSchema)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if a != b {
		t.Fatal("expected the second compile to hit the cache")
	}
}
