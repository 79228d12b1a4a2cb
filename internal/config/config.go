package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/abhisek/tutorpilot/internal/llm"
	"github.com/abhisek/tutorpilot/internal/logging"
	"github.com/abhisek/tutorpilot/internal/mastery"
	"github.com/abhisek/tutorpilot/internal/router"
	"github.com/abhisek/tutorpilot/internal/store"
)

const (
	// EnvPrefix is the prefix for environment overrides.
	EnvPrefix = "TUTORPILOT_"
	// Delimiter separates nested keys.
	Delimiter = "."
)

// Config is the full application configuration.
type Config struct {
	Log     logging.Config `koanf:"log"`
	LLM     llm.Config     `koanf:"llm"`
	Router  router.Config  `koanf:"router"`
	Mastery mastery.Config `koanf:"mastery"`
	Store   store.Config   `koanf:"store"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Log:     logging.DefaultConfig(),
		LLM:     llm.DefaultConfig(),
		Router:  router.DefaultConfig(),
		Mastery: mastery.DefaultConfig(),
		Store:   store.Config{Backend: store.BackendSQLite},
	}
}

// Load builds a Config from, in increasing priority: defaults, the file at
// path (YAML or JSON, optional), TUTORPILOT_* environment variables and
// overrides (dotted keys). When no LLM provider is configured the standard
// provider API-key variables are probed.
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(Delimiter)

	defaults := flatten(DefaultConfig())
	if err := k.Load(confmap.Provider(defaults, Delimiter), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, Delimiter, envKeyMapper(defaults)), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, Delimiter), nil); err != nil {
			return nil, fmt.Errorf("apply overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LLM.Provider == "" || cfg.LLM.Provider == llm.ProviderNone {
		cfg.LLM.Provider = llm.ProviderNone
		cfg.LLM, _ = llm.DiscoverConfig(cfg.LLM)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", filepath.Ext(path))
	}
}

// envKeyMapper maps TUTORPILOT_LLM_OPENAI_API_KEY to llm.openai.api_key by
// matching against the known keys. Unknown variables fall back to splitting
// on the first underscore.
func envKeyMapper(known map[string]any) func(string) string {
	index := make(map[string]string, len(known))
	for key := range known {
		index[strings.ReplaceAll(key, Delimiter, "_")] = key
	}
	return func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if key, ok := index[name]; ok {
			return key
		}
		return strings.Replace(name, "_", Delimiter, 1)
	}
}
