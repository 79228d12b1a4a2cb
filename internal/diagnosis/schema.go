package diagnosis

import (
	"strings"

	"github.com/abhisek/tutorpilot/internal/llm"
)

// diagnosisSchema restricts misconception_id to the candidate IDs, or null.
// Validated schemas are cached by name, so the name carries the IDs.
func diagnosisSchema(candidates []*Misconception) *llm.Schema {
	ids := make([]string, len(candidates))
	enum := make([]any, 0, len(candidates)+1)
	for i, c := range candidates {
		ids[i] = c.ID
		enum = append(enum, c.ID)
	}
	enum = append(enum, nil)

	return &llm.Schema{
		Name:        "misconception-diagnosis:" + strings.Join(ids, ","),
		Description: "Match of a student's answer against known misconceptions",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"misconception_id": map[string]any{
					"type":        []any{"string", "null"},
					"enum":        enum,
					"description": "ID of the matching candidate misconception, or null",
				},
				"confidence": map[string]any{
					"type":    "number",
					"minimum": 0.0,
					"maximum": 1.0,
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": "One sentence",
				},
			},
			"required":             []any{"misconception_id", "confidence", "reasoning"},
			"additionalProperties": false,
		},
	}
}
