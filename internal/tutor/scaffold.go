package tutor

import (
	"github.com/abhisek/tutorpilot/internal/mastery"
	"github.com/abhisek/tutorpilot/internal/router"
)

// Scaffolding is how much structure the reply should give.
type Scaffolding string

const (
	// ScaffoldNone is used for routes that do not teach (navigate, chat,
	// reject) unless the student is frustrated.
	ScaffoldNone Scaffolding = "none"
	// ScaffoldClarify is an ultra-short clarification for a frustrated
	// follow-up, whatever the route.
	ScaffoldClarify         Scaffolding = "clarify"
	ScaffoldHintOnly        Scaffolding = "hint-only"
	ScaffoldGuided          Scaffolding = "guided"
	ScaffoldWorkedExample   Scaffolding = "worked-example"
	ScaffoldFullExplanation Scaffolding = "full-explanation"
)

// teaches reports whether a label leads to a tutoring reply.
func teaches(l router.Label) bool {
	switch l {
	case router.LabelEducate, router.LabelExplain, router.LabelSolve:
		return true
	}
	return false
}

// ScaffoldingFor derives the scaffolding level from the routing decision
// and the recommended difficulty. Lower mastery gets more support; a solve
// request never gets more than a worked example.
func ScaffoldingFor(d router.Decision, difficulty mastery.Difficulty) Scaffolding {
	if d.Frustrated {
		return ScaffoldClarify
	}
	if !teaches(d.Label) {
		return ScaffoldNone
	}

	var s Scaffolding
	switch difficulty {
	case mastery.DifficultyEasy:
		s = ScaffoldFullExplanation
	case mastery.DifficultyMedium:
		s = ScaffoldWorkedExample
	case mastery.DifficultyHard:
		s = ScaffoldGuided
	default:
		s = ScaffoldHintOnly
	}
	if d.Label == router.LabelSolve && s == ScaffoldFullExplanation {
		s = ScaffoldWorkedExample
	}
	return s
}
