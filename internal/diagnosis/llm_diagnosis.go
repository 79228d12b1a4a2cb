package diagnosis

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/abhisek/tutorpilot/internal/llm"
)

// PurposeDiagnose tags LLM events from the diagnoser.
const PurposeDiagnose = "misconception-diagnose"

// DiagnoserConfig holds configuration for the LLM diagnoser.
type DiagnoserConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultDiagnoserConfig returns sensible defaults.
func DefaultDiagnoserConfig() DiagnoserConfig {
	return DiagnoserConfig{
		MaxTokens:   256,
		Temperature: 0.2,
	}
}

// Diagnoser picks among a topic's known misconceptions with an LLM.
type Diagnoser struct {
	provider llm.Provider
	cfg      DiagnoserConfig
}

// NewDiagnoser creates an LLM-based diagnoser.
func NewDiagnoser(provider llm.Provider, cfg DiagnoserConfig) *Diagnoser {
	return &Diagnoser{provider: provider, cfg: cfg}
}

// DiagnosisRequest is the input for LLM misconception identification.
type DiagnosisRequest struct {
	Topic         string
	Question      string
	CorrectAnswer string
	StudentAnswer string
	Candidates    []*Misconception
}

type diagnosisOutput struct {
	MisconceptionID *string `json:"misconception_id"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
}

// Diagnose asks the LLM which candidate, if any, the answer shows. It
// returns nil with no error when the LLM finds no match. An ID outside the
// candidates fails schema validation with *llm.ErrInvalidResponse.
func (d *Diagnoser) Diagnose(ctx context.Context, req *DiagnosisRequest) (*Detection, error) {
	ctx = llm.WithPurpose(ctx, PurposeDiagnose)

	userMsg, err := buildDiagnosisMessage(req)
	if err != nil {
		return nil, fmt.Errorf("build diagnosis prompt: %w", err)
	}

	resp, err := d.provider.Generate(ctx, llm.Request{
		System:      diagnosisSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      diagnosisSchema(req.Candidates),
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM diagnosis failed: %w", err)
	}

	var raw diagnosisOutput
	if err := llm.DecodeJSON(resp, &raw); err != nil {
		return nil, fmt.Errorf("parse diagnosis response: %w", err)
	}
	if raw.MisconceptionID == nil {
		return nil, nil
	}
	for _, c := range req.Candidates {
		if c.ID == *raw.MisconceptionID {
			return &Detection{
				MisconceptionID: c.ID,
				Detector:        DetectorLLM,
				Confidence:      raw.Confidence,
				Reasoning:       raw.Reasoning,
			}, nil
		}
	}
	return nil, nil
}

const diagnosisSystemPrompt = `You are a computer science and machine learning teaching assistant. A student answered a question incorrectly. Decide whether their answer shows one of the listed misconceptions.

Instructions:
- If the answer clearly shows one of the listed misconceptions, return its ID.
- Otherwise return null for misconception_id.
- Do NOT invent new misconception IDs. Only use IDs from the list provided.
- Provide a confidence score (0.0–1.0).
- Keep reasoning to one sentence.`

var diagnosisUserTemplate = template.Must(template.New("diagnosis").Parse(`Topic: {{.Topic}}
{{if .Question}}Question: {{.Question}}
{{end}}{{if .CorrectAnswer}}Correct answer: {{.CorrectAnswer}}
{{end}}Student's answer: {{.StudentAnswer}}

Known misconceptions for this topic:
{{range .Candidates}}- {{.ID}}: {{.Description}}
{{end}}`))

func buildDiagnosisMessage(req *DiagnosisRequest) (string, error) {
	var buf bytes.Buffer
	if err := diagnosisUserTemplate.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}
