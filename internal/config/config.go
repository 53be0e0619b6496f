package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/railsim/internal/analysis"
	"github.com/san-kum/railsim/internal/sim"
)

// Config is the on-disk scenario description. Units match what operators
// measure on the floor: millimeters for the gap and skew, meters for
// distance.
type Config struct {
	SpacingMM     float64 `yaml:"spacing_mm"`
	InitialSkewMM float64 `yaml:"initial_skew_mm"`
	MaxDistance   float64 `yaml:"max_distance_m"`
	MaxDuration   float64 `yaml:"max_duration_s"`
	Dt            float64 `yaml:"dt"`

	RailAngle     float64 `yaml:"rail_angle_rad"`
	RailCurvature float64 `yaml:"rail_curvature_rad_per_m"`

	Contact ContactConfig `yaml:"contact"`

	Thresholds analysis.Thresholds `yaml:"thresholds"`

	SweepSpacingsMM []float64 `yaml:"sweep_spacings_mm"`
}

// ContactConfig mirrors rail.ContactConfig with yaml tags; zero values mean
// "use the model default".
type ContactConfig struct {
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
	Friction  float64 `yaml:"friction"`
}

func DefaultConfig() *Config {
	return &Config{
		SpacingMM:       10,
		InitialSkewMM:   5,
		MaxDistance:     10,
		MaxDuration:     30,
		Dt:              0.001,
		Thresholds:      analysis.DefaultThresholds(),
		SweepSpacingsMM: []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SimConfig converts to the simulator's SI-unit run configuration.
func (c *Config) SimConfig() sim.Config {
	s := sim.DefaultConfig()
	s.Spacing = c.SpacingMM / 1000.0
	s.InitialTheta = sim.SkewToTheta(c.InitialSkewMM, sim.DefaultWheelBase)
	s.RailAngle = c.RailAngle
	s.RailCurvature = c.RailCurvature
	if c.MaxDistance > 0 {
		s.MaxDistance = c.MaxDistance
	}
	if c.MaxDuration > 0 {
		s.MaxDuration = c.MaxDuration
	}
	if c.Dt > 0 {
		s.Dt = c.Dt
	}
	if c.Contact.Stiffness > 0 {
		s.Contact.Stiffness = c.Contact.Stiffness
	}
	if c.Contact.Damping > 0 {
		s.Contact.Damping = c.Contact.Damping
	}
	if c.Contact.Friction > 0 {
		s.Contact.Friction = c.Contact.Friction
	}
	return s
}
