package router

import "time"

// Config tunes the router. It is populated by internal/config under the
// "router" key.
type Config struct {
	// Profile selects a built-in keyword profile.
	Profile string `koanf:"profile" validate:"oneof=modes tasks"`
	// ProfilePath loads the profile from a YAML file instead.
	ProfilePath string `koanf:"profile_path"`
	// CacheSize bounds the decision cache. Zero disables caching.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`
	// ConfirmThreshold is the confidence below which ShouldConfirm is set.
	ConfirmThreshold float64 `koanf:"confirm_threshold" validate:"gte=0,lte=1"`

	LLMTimeout time.Duration `koanf:"llm_timeout" validate:"gte=0"`
	// LLMRatePerSec limits fallback LLM calls. Zero means unlimited.
	LLMRatePerSec float64 `koanf:"llm_rate_per_sec" validate:"gte=0"`
	LLMBurst      int     `koanf:"llm_burst" validate:"gte=0"`

	// HistoryTurns and HistoryChars bound the conversation summary sent to
	// the LLM.
	HistoryTurns int `koanf:"history_turns" validate:"gte=0"`
	HistoryChars int `koanf:"history_chars" validate:"gte=0"`

	// Watch reloads ProfilePath when it changes.
	Watch bool `koanf:"watch"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Profile:          ProfileModes,
		CacheSize:        1000,
		ConfirmThreshold: 0.7,
		LLMTimeout:       5 * time.Second,
		LLMRatePerSec:    2,
		LLMBurst:         4,
		HistoryTurns:     3,
		HistoryChars:     200,
	}
}
