package mastery

// Difficulty is the recommended challenge level for a topic. It drives how
// much scaffolding a response gives.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyChallenge Difficulty = "challenge"
)

// DifficultyFor maps mastery to a difficulty band.
func DifficultyFor(mastery float64) Difficulty {
	switch {
	case mastery < 0.3:
		return DifficultyEasy
	case mastery < 0.6:
		return DifficultyMedium
	case mastery < 0.85:
		return DifficultyHard
	default:
		return DifficultyChallenge
	}
}
