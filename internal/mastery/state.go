package mastery

import "time"

// TopicState is a topic's position in the mastery lifecycle.
type TopicState string

const (
	StateUnknown    TopicState = "unknown"
	StateStruggling TopicState = "struggling"
	StateNormal     TopicState = "normal"
	StateMastered   TopicState = "mastered"
)

// Lifecycle thresholds.
const (
	// StrugglingBelow adds a topic to the struggling set.
	StrugglingBelow = 0.3
	// RecoveredAbove removes a topic from the struggling set. Between the
	// two thresholds membership does not change.
	RecoveredAbove = 0.6
	// MasteredAt is the mastery from which a topic counts as mastered.
	MasteredAt = 0.85
)

// MasteryChange describes the effect of one Update.
type MasteryChange struct {
	StudentID  string
	Topic      string
	From       float64
	To         float64
	FromState  TopicState
	ToState    TopicState
	Correct    bool
	NextReview time.Time
}

// StateChanged reports whether the update moved the topic to a new state.
func (c MasteryChange) StateChanged() bool {
	return c.FromState != c.ToState
}
