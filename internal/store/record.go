package store

import "time"

// StudentRecordVersion is the current StudentRecord format.
const StudentRecordVersion = 1

// StudentRecord is the serializable form of one student's mastery model.
// It is what every SnapshotRepo stores.
type StudentRecord struct {
	Version        int                    `json:"version"`
	StudentID      string                 `json:"student_id"`
	Topics         map[string]TopicRecord `json:"topics"`
	Struggling     []string               `json:"struggling,omitempty"`
	Misconceptions map[string][]string    `json:"misconceptions,omitempty"`
}

// TopicRecord is the stored state of one topic.
type TopicRecord struct {
	Mastery         float64             `json:"mastery"`
	LastInteraction *time.Time          `json:"last_interaction,omitempty"`
	NextReview      *time.Time          `json:"next_review,omitempty"`
	History         []InteractionRecord `json:"history,omitempty"`
}

// InteractionRecord is one answered question.
type InteractionRecord struct {
	At         time.Time `json:"at"`
	Correct    bool      `json:"correct"`
	Confidence float64   `json:"confidence"`
	HintLevel  int       `json:"hint_level"`
	Before     float64   `json:"before"`
	After      float64   `json:"after"`
}
