package config

import (
	"fmt"
	"sort"
)

// Presets are ready-made scenarios for the CLI. Each returns a fresh Config
// so callers can mutate the result freely.
var Presets = map[string]func() *Config{
	"tight": func() *Config {
		cfg := DefaultConfig()
		cfg.SpacingMM = 1
		cfg.InitialSkewMM = 2
		return cfg
	},
	"nominal": func() *Config {
		return DefaultConfig()
	},
	"wide": func() *Config {
		cfg := DefaultConfig()
		cfg.SpacingMM = 100
		return cfg
	},
	"curved": func() *Config {
		cfg := DefaultConfig()
		cfg.SpacingMM = 20
		cfg.RailCurvature = 0.002
		return cfg
	},
	"sweep": func() *Config {
		cfg := DefaultConfig()
		cfg.SweepSpacingsMM = []float64{1, 2, 5, 10, 20, 30, 40, 50, 75, 100}
		return cfg
	},
}

func Preset(name string) (*Config, error) {
	fn, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (have %v)", name, PresetNames())
	}
	return fn(), nil
}

func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
