package router

import (
	"errors"
	"fmt"
	"strings"
)

// TaskPayload is the task-specific data attached to a tasks-profile
// decision. The concrete type is fixed by the task label.
type TaskPayload interface {
	Task() Label
	validate() error
}

// ExplainPayload names the concept to explain.
type ExplainPayload struct {
	Topic string `json:"topic"`
}

// SolvePayload carries the problem statement.
type SolvePayload struct {
	Problem string `json:"problem"`
}

// ChatPayload has no data.
type ChatPayload struct{}

// RejectPayload records why the request was refused.
type RejectPayload struct {
	Reason string `json:"reason"`
}

func (ExplainPayload) Task() Label { return LabelExplain }
func (SolvePayload) Task() Label   { return LabelSolve }
func (ChatPayload) Task() Label    { return LabelChat }
func (RejectPayload) Task() Label  { return LabelReject }

func (p ExplainPayload) validate() error {
	if strings.TrimSpace(p.Topic) == "" {
		return errors.New("explain payload needs a topic")
	}
	return nil
}

func (p SolvePayload) validate() error {
	if strings.TrimSpace(p.Problem) == "" {
		return errors.New("solve payload needs a problem")
	}
	return nil
}

func (ChatPayload) validate() error { return nil }

func (p RejectPayload) validate() error {
	if strings.TrimSpace(p.Reason) == "" {
		return errors.New("reject payload needs a reason")
	}
	return nil
}

// NewTaskPayload checks that payload is the shape task requires and that
// its fields are filled in.
func NewTaskPayload(task Label, payload TaskPayload) (TaskPayload, error) {
	if payload == nil {
		return nil, fmt.Errorf("task %s: payload is required", task)
	}
	if payload.Task() != task {
		return nil, fmt.Errorf("task %s: got %T payload", task, payload)
	}
	if err := payload.validate(); err != nil {
		return nil, fmt.Errorf("task %s: %w", task, err)
	}
	return payload, nil
}

// payloadFor builds the payload for a tasks-profile decision. It returns
// nil for labels that carry no task.
func payloadFor(d Decision, query string) TaskPayload {
	var p TaskPayload
	switch d.Label {
	case LabelExplain:
		topic := d.Topic()
		if topic == "" {
			topic = query
		}
		p = ExplainPayload{Topic: topic}
	case LabelSolve:
		p = SolvePayload{Problem: query}
	case LabelChat:
		p = ChatPayload{}
	case LabelReject:
		p = RejectPayload{Reason: d.Reasoning}
	default:
		return nil
	}
	if _, err := NewTaskPayload(d.Label, p); err != nil {
		return nil
	}
	return p
}
