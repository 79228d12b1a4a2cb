package tutor

import (
	"time"

	"github.com/abhisek/tutorpilot/internal/diagnosis"
	"github.com/abhisek/tutorpilot/internal/mastery"
	"github.com/abhisek/tutorpilot/internal/router"
	"github.com/abhisek/tutorpilot/internal/spacedrep"
)

// Plan tells the response generator how to answer one utterance.
type Plan struct {
	SessionID string
	StudentID string
	Decision  router.Decision

	// Topic is the normalized topic the reply is about, "" when none was
	// found in the utterance or inherited from the previous turn.
	Topic          string
	Mastery        float64
	TopicState     mastery.TopicState
	Difficulty     mastery.Difficulty
	Scaffolding    Scaffolding
	Misconceptions []string

	// ReviewDue lists the student's topics due for review, most overdue
	// first.
	ReviewDue []string
}

// Answer is a graded answer to record.
type Answer struct {
	Topic         string
	Question      string
	StudentAnswer string
	CorrectAnswer string
	Outcome       mastery.Outcome
}

// AnswerResult is the effect of recording an answer.
type AnswerResult struct {
	Change           mastery.MasteryChange
	Difficulty       mastery.Difficulty
	Misconception    *diagnosis.Detection
	NewMisconception bool
}

// TopicSummary is one row of a StudentSummary.
type TopicSummary struct {
	Topic          string                 `json:"topic"`
	Mastery        float64                `json:"mastery"`
	State          mastery.TopicState     `json:"state"`
	Difficulty     mastery.Difficulty     `json:"difficulty"`
	Accuracy       float64                `json:"accuracy"`
	Attempts       int                    `json:"attempts"`
	NextReview     *time.Time             `json:"next_review,omitempty"`
	ReviewStatus   spacedrep.ReviewStatus `json:"review_status,omitempty"`
	Misconceptions []string               `json:"misconceptions,omitempty"`
}

// StudentSummary is a read-only view of a student's model.
type StudentSummary struct {
	StudentID  string         `json:"student_id"`
	SessionID  string         `json:"session_id"`
	Topics     []TopicSummary `json:"topics"`
	Struggling []string       `json:"struggling"`
	ReviewDue  []string       `json:"review_due"`
}
