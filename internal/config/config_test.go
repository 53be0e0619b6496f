package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")

	cfg := DefaultConfig()
	cfg.SpacingMM = 25
	cfg.RailCurvature = 0.003
	cfg.Contact.Stiffness = 2e6
	cfg.SweepSpacingsMM = []float64{5, 25}

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.SpacingMM != 25 {
		t.Errorf("spacing: got %g", loaded.SpacingMM)
	}
	if loaded.RailCurvature != 0.003 {
		t.Errorf("curvature: got %g", loaded.RailCurvature)
	}
	if loaded.Contact.Stiffness != 2e6 {
		t.Errorf("stiffness: got %g", loaded.Contact.Stiffness)
	}
	if len(loaded.SweepSpacingsMM) != 2 || loaded.SweepSpacingsMM[1] != 25 {
		t.Errorf("sweep spacings: got %v", loaded.SweepSpacingsMM)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("spacing_mm: 42\n"), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.SpacingMM != 42 {
		t.Errorf("spacing: got %g", loaded.SpacingMM)
	}
	if loaded.Dt != 0.001 {
		t.Errorf("dt default: got %g", loaded.Dt)
	}
	if loaded.MaxDistance != 10 {
		t.Errorf("distance default: got %g", loaded.MaxDistance)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSimConfigConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpacingMM = 20
	cfg.InitialSkewMM = 6
	cfg.MaxDistance = 4
	cfg.Contact.Damping = 5000

	s := cfg.SimConfig()

	if math.Abs(s.Spacing-0.020) > 1e-12 {
		t.Errorf("spacing: got %g m", s.Spacing)
	}
	if math.Abs(s.InitialTheta-0.006/1.2) > 1e-12 {
		t.Errorf("theta: got %g", s.InitialTheta)
	}
	if s.MaxDistance != 4 {
		t.Errorf("distance: got %g", s.MaxDistance)
	}
	if s.Contact.Damping != 5000 {
		t.Errorf("damping override: got %g", s.Contact.Damping)
	}
	// Unset overrides keep the model defaults.
	if s.Contact.Stiffness != 1e6 {
		t.Errorf("stiffness default: got %g", s.Contact.Stiffness)
	}
}

func TestPresets(t *testing.T) {
	names := PresetNames()
	if len(names) == 0 {
		t.Fatal("no presets registered")
	}

	for _, name := range names {
		cfg, err := Preset(name)
		if err != nil {
			t.Fatalf("preset %s: %v", name, err)
		}
		if cfg.SpacingMM <= 0 || cfg.Dt <= 0 {
			t.Errorf("preset %s has unusable values: %+v", name, cfg)
		}
	}

	if _, err := Preset("bogus"); err == nil {
		t.Error("expected error for unknown preset")
	}

	// Presets hand out fresh configs, not shared state.
	a, _ := Preset("nominal")
	a.SpacingMM = 999
	b, _ := Preset("nominal")
	if b.SpacingMM == 999 {
		t.Error("preset mutation leaked into later calls")
	}
}
