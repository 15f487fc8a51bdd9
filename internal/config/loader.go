package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvConfig names the environment variable holding the path of a YAML
// configuration file.
const EnvConfig = "PEAKFINDER_CONFIG"

const envPrefix = "PEAKFINDER_"

// Load builds a Config by layering defaults, an optional file, environment
// variables, and overrides.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. the preset's thresholds, if a preset other than custom is set
//  3. file (YAML) at path, or PEAKFINDER_CONFIG if path is empty
//  4. env (prefix PEAKFINDER_)
//  5. overrides, keyed like the YAML file
func Load(path string, overrides map[string]any) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Map env keys like PEAKFINDER_BORDER_WIDTH -> border_width.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, key, err)
		}
	}

	cfg := *base
	if k.Exists("preset") {
		cfg.Preset = k.String("preset")
	}
	if preset, ok := Presets[cfg.Preset]; ok {
		cfg.Prominence = preset.Prominence
		cfg.Dominance = preset.Dominance
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
