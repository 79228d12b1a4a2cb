package tutor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/tutorpilot/internal/mastery"
	"github.com/abhisek/tutorpilot/internal/router"
)

func TestScaffoldingFor(t *testing.T) {
	tests := []struct {
		name       string
		decision   router.Decision
		difficulty mastery.Difficulty
		want       Scaffolding
	}{
		{"navigate never teaches", router.Decision{Label: router.LabelNavigate}, mastery.DifficultyEasy, ScaffoldNone},
		{"chat", router.Decision{Label: router.LabelChat}, mastery.DifficultyHard, ScaffoldNone},
		{"reject", router.Decision{Label: router.LabelReject}, mastery.DifficultyEasy, ScaffoldNone},
		{"frustrated follow-up", router.Decision{Label: router.LabelEducate, Frustrated: true}, mastery.DifficultyChallenge, ScaffoldClarify},
		{"frustrated after navigate", router.Decision{Label: router.LabelNavigate, Frustrated: true}, mastery.DifficultyEasy, ScaffoldClarify},
		{"frustrated chat", router.Decision{Label: router.LabelChat, Frustrated: true}, "", ScaffoldClarify},
		{"easy educate", router.Decision{Label: router.LabelEducate}, mastery.DifficultyEasy, ScaffoldFullExplanation},
		{"medium explain", router.Decision{Label: router.LabelExplain}, mastery.DifficultyMedium, ScaffoldWorkedExample},
		{"hard educate", router.Decision{Label: router.LabelEducate}, mastery.DifficultyHard, ScaffoldGuided},
		{"challenge educate", router.Decision{Label: router.LabelEducate}, mastery.DifficultyChallenge, ScaffoldHintOnly},
		{"easy solve capped", router.Decision{Label: router.LabelSolve}, mastery.DifficultyEasy, ScaffoldWorkedExample},
		{"hard solve", router.Decision{Label: router.LabelSolve}, mastery.DifficultyHard, ScaffoldGuided},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScaffoldingFor(tt.decision, tt.difficulty))
		})
	}
}
