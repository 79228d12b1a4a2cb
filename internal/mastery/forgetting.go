package mastery

import (
	"math"
	"time"
)

// Retention is the fraction of learning retained after elapsed time:
// 0.5^(days/halfLifeDays).
func Retention(elapsed time.Duration, halfLifeDays float64) float64 {
	if elapsed <= 0 || halfLifeDays <= 0 {
		return 1
	}
	days := elapsed.Hours() / 24.0
	return math.Pow(0.5, days/halfLifeDays)
}

// Decay applies the forgetting curve to a stored mastery. The result
// approaches half of base and never reaches zero.
func Decay(base float64, elapsed time.Duration, halfLifeDays float64) float64 {
	return clamp01(base * (0.5 + 0.5*Retention(elapsed, halfLifeDays)))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
