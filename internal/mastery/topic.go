package mastery

import "time"

// MaxHintLevel is the highest hint level an outcome can report.
const MaxHintLevel = 3

// Outcome is the result of one answered question.
type Outcome struct {
	Correct    bool
	Confidence float64 // clamped to [0,1]
	HintLevel  int     // clamped to 0..MaxHintLevel
}

// normalized returns the outcome with out-of-range inputs clamped.
func (o Outcome) normalized() Outcome {
	o.Confidence = clamp01(o.Confidence)
	o.HintLevel = min(max(o.HintLevel, 0), MaxHintLevel)
	return o
}

// Interaction is one entry in a topic's bounded history.
type Interaction struct {
	At         time.Time
	Correct    bool
	Confidence float64
	HintLevel  int
	Before     float64
	After      float64
}

// TopicMastery is the tracked state for one topic.
type TopicMastery struct {
	Topic           string
	Mastery         float64
	LastInteraction *time.Time
	History         []Interaction
}

// Accuracy returns the share of correct answers in the retained history.
func (tm *TopicMastery) Accuracy() float64 {
	if len(tm.History) == 0 {
		return 0
	}
	correct := 0
	for _, h := range tm.History {
		if h.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(tm.History))
}

func (tm *TopicMastery) clone() TopicMastery {
	cp := *tm
	if tm.LastInteraction != nil {
		t := *tm.LastInteraction
		cp.LastInteraction = &t
	}
	cp.History = append([]Interaction(nil), tm.History...)
	return cp
}

// nextMastery applies one outcome to the current mastery.
func nextMastery(current float64, o Outcome) float64 {
	if o.Correct {
		evidence := o.Confidence - 0.3*(float64(o.HintLevel)/MaxHintLevel)
		return clamp01(current + evidence*(1-current)*0.4)
	}
	evidence := 1 - o.Confidence
	return clamp01(current - evidence*current*0.3)
}
