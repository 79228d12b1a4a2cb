package diagnosis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/abhisek/tutorpilot/internal/llm"
)

func TestService_PatternWithoutLLM(t *testing.T) {
	svc := NewService(nil, nil)

	det := svc.Diagnose(context.Background(), &Input{
		Topic:         "dfs",
		StudentAnswer: "dfs explores breadth-first",
		CorrectAnswer: "dfs explores depth-first",
	})
	if det == nil || det.MisconceptionID != "dfs-bfs-confusion" {
		t.Fatalf("got %+v, want dfs-bfs-confusion", det)
	}
	if det.Detector != DetectorPattern {
		t.Errorf("detector = %q, want pattern", det.Detector)
	}
}

func TestService_NoDetectionWithoutLLM(t *testing.T) {
	svc := NewService(nil, nil)
	if det := svc.Diagnose(context.Background(), &Input{Topic: "dfs", StudentAnswer: "no idea"}); det != nil {
		t.Errorf("expected nil, got %+v", det)
	}
}

func TestService_PatternBeatsLLM(t *testing.T) {
	mock := llm.NewMockProvider()
	svc := NewService(mock, nil)

	det := svc.Diagnose(context.Background(), &Input{Topic: "stack", StudentAnswer: "a stack is FIFO"})
	if det == nil || det.Detector != DetectorPattern {
		t.Fatalf("expected pattern detection, got %+v", det)
	}
	if mock.CallCount() != 0 {
		t.Errorf("LLM was called %d times, want 0", mock.CallCount())
	}
}

func TestService_LLMFallback(t *testing.T) {
	resp := json.RawMessage(`{"misconception_id":"dfs-bfs-confusion","confidence":0.7,"reasoning":"neighbours first"}`)
	mock := llm.NewMockProvider(llm.MockResponse{Content: resp})
	svc := NewService(mock, nil)

	det := svc.Diagnose(context.Background(), &Input{Topic: "dfs", StudentAnswer: "it visits all neighbours first"})
	if det == nil || det.Detector != DetectorLLM {
		t.Fatalf("expected llm detection, got %+v", det)
	}
	if mock.CallCount() != 1 {
		t.Errorf("LLM calls = %d, want 1", mock.CallCount())
	}
}

func TestService_LLMSkippedForUnknownTopic(t *testing.T) {
	mock := llm.NewMockProvider()
	svc := NewService(mock, nil)

	if det := svc.Diagnose(context.Background(), &Input{Topic: "poetry", StudentAnswer: "iambic"}); det != nil {
		t.Errorf("expected nil, got %+v", det)
	}
	if mock.CallCount() != 0 {
		t.Error("LLM should not be asked without candidates")
	}
}

func TestService_LLMFailureIsSwallowed(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	svc := NewService(mock, nil)

	if det := svc.Diagnose(context.Background(), &Input{Topic: "dfs", StudentAnswer: "it visits all neighbours first"}); det != nil {
		t.Errorf("expected nil on provider failure, got %+v", det)
	}
}

func TestService_LLMTimeout(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"misconception_id":null,"confidence":0,"reasoning":""}`),
		Delay:   time.Second,
	})
	svc := NewService(mock, nil)
	svc.timeout = 20 * time.Millisecond

	start := time.Now()
	det := svc.Diagnose(context.Background(), &Input{Topic: "dfs", StudentAnswer: "it visits all neighbours first"})
	if det != nil {
		t.Errorf("expected nil on timeout, got %+v", det)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout not applied, took %v", elapsed)
	}
}
