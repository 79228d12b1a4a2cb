package diagnosis

import (
	"context"
	"log/slog"
	"time"

	"github.com/abhisek/tutorpilot/internal/llm"
	"github.com/abhisek/tutorpilot/internal/logging"
)

// DefaultLLMTimeout bounds a single LLM diagnosis.
const DefaultLLMTimeout = 5 * time.Second

// Service runs local detectors first and, when they find nothing and an LLM
// is configured, asks the LLM to choose among the topic's misconceptions.
type Service struct {
	detectors []Detector
	diagnoser *Diagnoser
	timeout   time.Duration
	logger    *slog.Logger
}

// NewService creates a diagnosis service. If provider is nil, only local
// detection is available.
func NewService(provider llm.Provider, logger *slog.Logger) *Service {
	s := &Service{
		detectors: DefaultDetectors(),
		timeout:   DefaultLLMTimeout,
		logger:    logging.OrDiscard(logger),
	}
	if provider != nil {
		s.diagnoser = NewDiagnoser(provider, DefaultDiagnoserConfig())
	}
	return s
}

// Diagnose returns the detected misconception or nil. LLM failures are
// logged and treated as no detection.
func (s *Service) Diagnose(ctx context.Context, in *Input) *Detection {
	if det := RunDetectors(s.detectors, in); det != nil {
		return det
	}
	if s.diagnoser == nil || in.StudentAnswer == "" {
		return nil
	}

	candidates := MisconceptionsByTopic(in.Topic)
	if len(candidates) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	det, err := s.diagnoser.Diagnose(ctx, &DiagnosisRequest{
		Topic:         in.Topic,
		Question:      in.Question,
		CorrectAnswer: in.CorrectAnswer,
		StudentAnswer: in.StudentAnswer,
		Candidates:    candidates,
	})
	if err != nil {
		s.logger.Warn("llm misconception diagnosis failed", "topic", in.Topic, "error", err)
		return nil
	}
	return det
}
