package spacedrep

import (
	"testing"
	"time"
)

func TestIntervalDays(t *testing.T) {
	tests := []struct {
		mastery float64
		want    int
	}{
		{0, 1},
		{0.29, 1},
		{0.3, 3},
		{0.59, 3},
		{0.6, 7},
		{0.849, 7},
		{0.85, 14},
		{1, 14},
	}
	for _, tt := range tests {
		if got := IntervalDays(tt.mastery); got != tt.want {
			t.Errorf("IntervalDays(%v) = %d, want %d", tt.mastery, got, tt.want)
		}
	}
}

func TestBandsAscending(t *testing.T) {
	for i := 1; i < len(Bands); i++ {
		if Bands[i].Below <= Bands[i-1].Below {
			t.Errorf("band %d bound %v not above band %d bound %v", i, Bands[i].Below, i-1, Bands[i-1].Below)
		}
		if Bands[i].Days <= Bands[i-1].Days {
			t.Errorf("band %d interval %d not longer than band %d", i, Bands[i].Days, i-1)
		}
	}
	if last := Bands[len(Bands)-1].Days; MaxIntervalDays <= last {
		t.Errorf("MaxIntervalDays = %d, want > %d", MaxIntervalDays, last)
	}
}

func TestNextReview(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	if got, want := NextReview(0.1, now), now.AddDate(0, 0, 1); !got.Equal(want) {
		t.Errorf("NextReview(0.1) = %v, want %v", got, want)
	}
	if got, want := NextReview(0.9, now), now.AddDate(0, 0, 14); !got.Equal(want) {
		t.Errorf("NextReview(0.9) = %v, want %v", got, want)
	}
}
