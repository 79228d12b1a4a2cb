package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abhisek/tutorpilot/internal/mastery"
	"github.com/abhisek/tutorpilot/internal/router"
	"github.com/abhisek/tutorpilot/internal/tutor"
	"github.com/abhisek/tutorpilot/internal/ui/theme"
)

const timeLayout = "2006-01-02 15:04:05"

func field(w io.Writer, name string, value any) {
	fmt.Fprintf(w, "%s %v\n", theme.Paint(theme.Key, fmt.Sprintf("%-13s", name+":")), value)
}

func rule(w io.Writer, width int) {
	fmt.Fprintln(w, theme.Paint(theme.Key, strings.Repeat("─", width)))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// decisionOutput adds the task payload, which Decision leaves out of its
// own JSON form.
type decisionOutput struct {
	router.Decision
	Task    router.Label       `json:"task,omitempty"`
	Payload router.TaskPayload `json:"payload,omitempty"`
}

func decisionJSON(d router.Decision) decisionOutput {
	out := decisionOutput{Decision: d, Payload: d.Payload}
	if d.Payload != nil {
		out.Task = d.Payload.Task()
	}
	return out
}

func styledLabel(d router.Decision) string {
	s := theme.Paint(theme.Label, string(d.Label))
	var tags []string
	if d.IsFollowUp {
		tags = append(tags, "follow-up")
	}
	if d.Frustrated {
		tags = append(tags, "frustrated")
	}
	if d.Cached {
		tags = append(tags, "cached")
	}
	if d.UsedLLM {
		tags = append(tags, "llm")
	}
	if len(tags) > 0 {
		s += " " + theme.Paint(theme.Hint, "("+strings.Join(tags, ", ")+")")
	}
	return s
}

func renderDecision(w io.Writer, d router.Decision) {
	field(w, "Label", styledLabel(d))
	conf := fmt.Sprintf("%.2f", d.Confidence)
	if d.ShouldConfirm {
		conf += " " + theme.Paint(theme.Confirm, "confirm with student")
	}
	field(w, "Confidence", conf)
	reasoning := d.Reasoning
	if d.Degraded {
		reasoning = theme.Paint(theme.Degraded, reasoning)
	}
	field(w, "Reasoning", reasoning)
	field(w, "Rules", strings.Join(d.Rules, " > "))
	if len(d.Topics) > 0 {
		field(w, "Topics", strings.Join(d.Topics, ", "))
	}
	if d.Payload != nil {
		b, _ := json.Marshal(d.Payload)
		field(w, "Payload", fmt.Sprintf("%s %s", d.Payload.Task(), b))
	}
}

func styledState(s mastery.TopicState) string {
	switch s {
	case mastery.StateMastered:
		return theme.Paint(theme.Mastered, string(s))
	case mastery.StateStruggling:
		return theme.Paint(theme.Struggling, string(s))
	default:
		return theme.Paint(theme.Normal, string(s))
	}
}

func renderPlan(w io.Writer, p *tutor.Plan) {
	renderDecision(w, p.Decision)
	if p.Topic != "" {
		field(w, "Topic", p.Topic)
		field(w, "Mastery", fmt.Sprintf("%s %.2f  %s", theme.Bar(p.Mastery, 20), p.Mastery, styledState(p.TopicState)))
	}
	field(w, "Difficulty", p.Difficulty)
	field(w, "Scaffolding", theme.Paint(theme.Title, string(p.Scaffolding)))
	if len(p.Misconceptions) > 0 {
		field(w, "Watch for", strings.Join(p.Misconceptions, ", "))
	}
	if len(p.ReviewDue) > 0 {
		field(w, "Review due", strings.Join(p.ReviewDue, ", "))
	}
}

func renderSummary(w io.Writer, s *tutor.StudentSummary) {
	fmt.Fprintln(w, theme.Paint(theme.Title, "Student "+s.StudentID))
	if len(s.Topics) == 0 {
		fmt.Fprintln(w, "No topics tracked yet.")
		return
	}

	fmt.Fprintf(w, "%-24s  %-22s  %-11s  %-9s  %-8s  %s\n",
		"Topic", "Mastery", "State", "Level", "Accuracy", "Next review")
	rule(w, 100)
	for _, t := range s.Topics {
		next := "-"
		if t.NextReview != nil {
			next = fmt.Sprintf("%s (%s)", formatTime(*t.NextReview), t.ReviewStatus)
		}
		fmt.Fprintf(w, "%-24s  %s %.2f  %-11s  %-9s  %7.0f%%  %s\n",
			truncate(t.Topic, 24),
			theme.Bar(t.Mastery, 16), t.Mastery,
			padStyled(styledState(t.State), string(t.State), 11),
			t.Difficulty,
			t.Accuracy*100,
			next,
		)
		if len(t.Misconceptions) > 0 {
			fmt.Fprintf(w, "  %s %s\n", theme.Paint(theme.Hint, "misconceptions:"), strings.Join(t.Misconceptions, ", "))
		}
	}
	if len(s.Struggling) > 0 {
		fmt.Fprintln(w)
		field(w, "Struggling", strings.Join(s.Struggling, ", "))
	}
	if len(s.ReviewDue) > 0 {
		field(w, "Review due", strings.Join(s.ReviewDue, ", "))
	}
}

// padStyled pads styled to width measured on its plain text.
func padStyled(styled, plain string, width int) string {
	if n := width - len(plain); n > 0 {
		return styled + strings.Repeat(" ", n)
	}
	return styled
}

func formatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
