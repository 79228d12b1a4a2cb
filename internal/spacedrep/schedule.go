package spacedrep

import "time"

// Band maps mastery strictly below Below to a review interval.
type Band struct {
	Below float64
	Days  int
}

// Bands is the review interval table, ordered by ascending upper bound.
// Mastery at or above the last bound uses MaxIntervalDays.
var Bands = []Band{
	{Below: 0.3, Days: 1},
	{Below: 0.6, Days: 3},
	{Below: 0.85, Days: 7},
}

// MaxIntervalDays is the interval for mastered topics.
const MaxIntervalDays = 14

// IntervalDays returns the review interval for a mastery value.
func IntervalDays(mastery float64) int {
	for _, b := range Bands {
		if mastery < b.Below {
			return b.Days
		}
	}
	return MaxIntervalDays
}

// NextReview returns the review date for a mastery value scheduled at now.
func NextReview(mastery float64, now time.Time) time.Time {
	return now.AddDate(0, 0, IntervalDays(mastery))
}
