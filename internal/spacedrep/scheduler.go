package spacedrep

import (
	"sort"
	"time"
)

// Scheduler holds the review schedule for one student's topics.
// It is not safe for concurrent use; callers serialize per student.
type Scheduler struct {
	reviews map[string]*ReviewState
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{reviews: make(map[string]*ReviewState)}
}

// Schedule sets the next review for topic from its mastery, replacing any
// previous schedule.
func (s *Scheduler) Schedule(topic string, mastery float64, now time.Time) time.Time {
	days := IntervalDays(mastery)
	rs := &ReviewState{
		Topic:          topic,
		NextReviewDate: now.AddDate(0, 0, days),
		LastReviewDate: now,
		IntervalDays:   days,
	}
	s.reviews[topic] = rs
	return rs.NextReviewDate
}

// Restore loads a persisted schedule. The interval is recovered from the
// two dates; a zero next date is ignored.
func (s *Scheduler) Restore(topic string, last, next time.Time) {
	if next.IsZero() {
		return
	}
	s.reviews[topic] = &ReviewState{
		Topic:          topic,
		NextReviewDate: next,
		LastReviewDate: last,
		IntervalDays:   intervalBetween(last, next),
	}
}

// ShouldReview reports whether topic has a schedule and it is due.
func (s *Scheduler) ShouldReview(topic string, now time.Time) bool {
	rs := s.reviews[topic]
	return rs != nil && rs.IsDue(now)
}

// Due returns topics due for review, most overdue first. Ties break by
// topic name.
func (s *Scheduler) Due(now time.Time) []string {
	type dueTopic struct {
		topic   string
		overdue float64
	}
	var due []dueTopic
	for topic, rs := range s.reviews {
		if rs.IsDue(now) {
			due = append(due, dueTopic{topic: topic, overdue: rs.OverdueDays(now)})
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].overdue != due[j].overdue {
			return due[i].overdue > due[j].overdue
		}
		return due[i].topic < due[j].topic
	})

	topics := make([]string, len(due))
	for i, d := range due {
		topics[i] = d.topic
	}
	return topics
}

// Get returns the review state for topic, or nil if none is scheduled.
func (s *Scheduler) Get(topic string) *ReviewState {
	rs := s.reviews[topic]
	if rs == nil {
		return nil
	}
	cp := *rs
	return &cp
}

// All returns a copy of every review state.
func (s *Scheduler) All() map[string]ReviewState {
	out := make(map[string]ReviewState, len(s.reviews))
	for topic, rs := range s.reviews {
		out[topic] = *rs
	}
	return out
}
