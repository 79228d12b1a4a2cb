package spacedrep

import (
	"math"
	"time"
)

// ReviewState is the review schedule for a single topic. Only the most
// recent schedule is kept.
type ReviewState struct {
	Topic          string    `json:"topic"`
	NextReviewDate time.Time `json:"next_review_date"`
	LastReviewDate time.Time `json:"last_review_date"`
	IntervalDays   int       `json:"interval_days"`
}

// IsDue returns true if the topic is due for review (at or past the review date).
func (rs *ReviewState) IsDue(now time.Time) bool {
	return !now.Before(rs.NextReviewDate)
}

// OverdueDays returns how many days past due the topic is. Returns 0 if not yet due.
func (rs *ReviewState) OverdueDays(now time.Time) float64 {
	if now.Before(rs.NextReviewDate) {
		return 0
	}
	return now.Sub(rs.NextReviewDate).Hours() / 24.0
}

// IsOverdue returns true once the topic has been due for longer than half
// its interval.
func (rs *ReviewState) IsOverdue(now time.Time) bool {
	if !rs.IsDue(now) {
		return false
	}
	interval := rs.IntervalDays
	if interval <= 0 {
		interval = 1
	}
	graceHours := float64(interval) * 0.5 * 24.0
	threshold := rs.NextReviewDate.Add(time.Duration(graceHours * float64(time.Hour)))
	return now.After(threshold)
}

// ReviewStatus describes a topic's review status for display.
type ReviewStatus string

const (
	ReviewNotDue  ReviewStatus = "not_due"
	ReviewDue     ReviewStatus = "due"
	ReviewOverdue ReviewStatus = "overdue"
)

// Status returns the review status for display.
func (rs *ReviewState) Status(now time.Time) ReviewStatus {
	switch {
	case rs.IsOverdue(now):
		return ReviewOverdue
	case rs.IsDue(now):
		return ReviewDue
	default:
		return ReviewNotDue
	}
}

// DaysUntilReview returns the number of days until the next review.
// Returns 0 if already due.
func (rs *ReviewState) DaysUntilReview(now time.Time) int {
	if rs.IsDue(now) {
		return 0
	}
	return int(rs.NextReviewDate.Sub(now).Hours()/24.0) + 1
}

// intervalBetween recovers a whole-day interval from two dates.
func intervalBetween(last, next time.Time) int {
	if last.IsZero() || !next.After(last) {
		return 0
	}
	return int(math.Round(next.Sub(last).Hours() / 24.0))
}
