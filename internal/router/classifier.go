package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/tutorpilot/internal/llm"
)

// PurposeClassify tags LLM events from the fallback classifier.
const PurposeClassify = "route-classify"

// llmFailedReasoning prefixes the reasoning of every degraded decision.
const llmFailedReasoning = "LLM classification failed; deterministic fallback"

func routingSchema(p *Profile) *llm.Schema {
	labels := make([]any, len(p.Labels))
	names := make([]string, len(p.Labels))
	for i, l := range p.Labels {
		labels[i] = string(l)
		names[i] = string(l)
	}
	return &llm.Schema{
		// The name keys the compiled-schema cache, so it changes with the
		// label set.
		Name:        "route-" + p.Name + "-" + strings.Join(names, "-"),
		Description: "Routing decision for a student message",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mode": map[string]any{
					"type":        "string",
					"enum":        labels,
					"description": "The chosen label",
				},
				"confidence": map[string]any{
					"type":    "number",
					"minimum": 0.0,
					"maximum": 1.0,
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": "One short sentence",
				},
			},
			"required":             []any{"mode", "confidence", "reasoning"},
			"additionalProperties": false,
		},
	}
}

type classifierPick struct {
	Mode       Label   `json:"mode"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// classifyWithLLM asks the provider to pick a label. Any error means the
// caller falls back to the deterministic answer.
func (r *Router) classifyWithLLM(ctx context.Context, p *compiledProfile, query string, history []Turn) (classifierPick, error) {
	ctx = llm.WithPurpose(ctx, PurposeClassify)
	if r.cfg.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.LLMTimeout)
		defer cancel()
	}

	resp, err := r.provider.Generate(ctx, llm.Request{
		System:      classifierSystemPrompt(p),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: r.classifierUserPrompt(query, history)}},
		Schema:      p.schema,
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		return classifierPick{}, fmt.Errorf("classify: %w", err)
	}

	var pick classifierPick
	if err := llm.DecodeJSON(resp, &pick); err != nil {
		return classifierPick{}, err
	}
	valid := false
	for _, l := range p.Labels {
		if l == pick.Mode {
			valid = true
		}
	}
	if !valid {
		return classifierPick{}, fmt.Errorf("classify: label %q is not in profile %s", pick.Mode, p.Name)
	}
	if pick.Confidence < 0 || pick.Confidence > 1 {
		return classifierPick{}, fmt.Errorf("classify: confidence %v out of range", pick.Confidence)
	}
	return pick, nil
}

func classifierSystemPrompt(p *compiledProfile) string {
	var sb strings.Builder
	sb.WriteString("You route messages from a student in a computer science and machine learning course.\n")
	sb.WriteString("Choose exactly one label for the current message.\n\nLabels:\n")
	for _, l := range p.Labels {
		fmt.Fprintf(&sb, "- %s: %s\n", l, p.Descriptions[l])
	}
	sb.WriteString("\nUse the recent conversation only to resolve references like \"it\" or \"what about\".\n")
	sb.WriteString(`Return ONLY JSON: {"mode": "...", "confidence": 0-1, "reasoning": "..."}.`)
	return sb.String()
}

// classifierUserPrompt embeds the most recent history turns, each cut to
// the configured length, followed by the query.
func (r *Router) classifierUserPrompt(query string, history []Turn) string {
	var sb strings.Builder
	if n := min(r.cfg.HistoryTurns, len(history)); n > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, t := range history[len(history)-n:] {
			role := string(t.Role)
			if t.Mode != "" {
				role += " [" + string(t.Mode) + "]"
			}
			fmt.Fprintf(&sb, "- %s: %s\n", role, truncate(t.Content, r.cfg.HistoryChars))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Current message: ")
	sb.WriteString(query)
	return sb.String()
}

// truncate cuts s to at most n runes, marking the cut. n <= 0 keeps s.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
