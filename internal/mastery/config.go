package mastery

// Config tunes the tracker. It is populated by internal/config under the
// "mastery" key.
type Config struct {
	// Prior is the mastery assumed for a topic with no record.
	Prior float64 `koanf:"prior" validate:"gte=0,lte=1"`
	// HalfLifeDays is the forgetting-curve half life.
	HalfLifeDays float64 `koanf:"half_life_days" validate:"gt=0"`
	// HistoryCap bounds the per-topic interaction history.
	HistoryCap int `koanf:"history_cap" validate:"gte=1"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Prior:        0.2,
		HalfLifeDays: 7,
		HistoryCap:   50,
	}
}
