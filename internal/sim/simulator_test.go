package sim

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/railsim/internal/dynamo"
	"github.com/san-kum/railsim/internal/integrators"
	"github.com/san-kum/railsim/internal/rail"
)

func TestNewRejectsBadInputs(t *testing.T) {
	params := rail.DefaultParams()

	tests := []struct {
		name   string
		params rail.Params
		mutate func(*Config)
	}{
		{"zero spacing", params, func(c *Config) { c.Spacing = 0 }},
		{"negative spacing", params, func(c *Config) { c.Spacing = -0.01 }},
		{"zero dt", params, func(c *Config) { c.Dt = 0 }},
		{"zero duration", params, func(c *Config) { c.MaxDuration = 0 }},
		{"zero distance", params, func(c *Config) { c.MaxDistance = 0 }},
		{"zero step budget", params, func(c *Config) { c.MaxSteps = 0 }},
		{"nan theta", params, func(c *Config) { c.InitialTheta = math.NaN() }},
		{"bad params", func() rail.Params {
			p := params
			p.RobotMass = -1
			return p
		}(), func(c *Config) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(tt.params, cfg, integrators.NewRK4())
			if !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestRunIsSingleShot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDistance = 0.5

	s, err := New(rail.DefaultParams(), cfg, integrators.NewRK4())
	if err != nil {
		t.Fatal(err)
	}
	if s.Phase() != PhaseUninitialized {
		t.Fatalf("fresh simulator phase: %v", s.Phase())
	}

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if s.Phase() != PhaseCompleted {
		t.Errorf("phase after run: %v", s.Phase())
	}

	_, err = s.Run(context.Background())
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("second run: expected ErrInvalidState, got %v", err)
	}
}

func TestAlignedRobotDrivesStraight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spacing = 0.001
	cfg.InitialTheta = 0
	cfg.MaxDistance = 2.0

	s, err := New(rail.DefaultParams(), cfg, integrators.NewRK4())
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Diverged {
		t.Fatalf("run diverged: %s", res.Reason)
	}

	for i, st := range res.States {
		if math.Abs(st[rail.IdxY]) > 1e-6 {
			t.Fatalf("sample %d: aligned robot drifted to y=%g", i, st[rail.IdxY])
		}
	}

	if d := res.Distance(); d < 1.9 || d > 2.1 {
		t.Errorf("distance: got %g, want ~2.0", d)
	}
	if res.Duration() <= 0 {
		t.Error("duration should be positive")
	}
}

func TestRunRecordsInitialSample(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0.1
	cfg.MaxDuration = 1.0
	cfg.MaxDistance = 100 // time budget binds

	s, err := New(rail.DefaultParams(), cfg, integrators.NewRK4())
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if res.Times[0] != 0 {
		t.Errorf("first sample at t=%g, want 0", res.Times[0])
	}
	if len(res.Times) != res.Steps+1 {
		t.Errorf("samples: got %d for %d steps", len(res.Times), res.Steps)
	}
	if len(res.Left) != len(res.Times) || len(res.Right) != len(res.Times) {
		t.Error("contact slices should match trajectory length")
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	s, err := New(rail.DefaultParams(), DefaultConfig(), integrators.NewRK4())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || len(res.Times) == 0 {
		t.Error("cancelled run should still return the partial trajectory")
	}
}

func TestDivergenceProducesPartialResult(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spacing = 0.010
	cfg.Dt = 0.01
	cfg.AutoOffset = false
	cfg.InitialY = 0.030
	cfg.Contact.Stiffness = 1e12 // absurdly stiff on purpose

	s, err := New(rail.DefaultParams(), cfg, integrators.NewRK4())
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("divergence must not surface as an error: %v", err)
	}
	if !res.Diverged {
		t.Fatal("expected diverged run")
	}
	if res.Reason == "" {
		t.Error("diverged run should carry a reason")
	}
	if len(res.States) == 0 {
		t.Error("diverged run should keep the partial trajectory")
	}
	if s.Phase() != PhaseCompleted {
		t.Errorf("phase after divergence: %v", s.Phase())
	}
}

func TestStepBudgetExhaustionFlagsRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 50
	cfg.MaxDistance = 10 // unreachable in 50 steps

	s, err := New(rail.DefaultParams(), cfg, integrators.NewRK4())
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("budget exhaustion must not surface as an error: %v", err)
	}
	if res.Steps != 50 {
		t.Errorf("got %d steps, want 50", res.Steps)
	}
	if !res.Diverged {
		t.Fatal("truncated run must be flagged, not returned as a normal result")
	}
	if !strings.Contains(res.Reason, "step budget") {
		t.Errorf("reason should name the step budget, got %q", res.Reason)
	}
	if len(res.Times) != res.Steps+1 {
		t.Errorf("got %d samples, want %d", len(res.Times), res.Steps+1)
	}
}

func TestSkewToTheta(t *testing.T) {
	// 5 mm of skew over a 1.2 m wheel base.
	want := 0.005 / 1.2
	if got := SkewToTheta(5.0, 1.2); math.Abs(got-want) > 1e-12 {
		t.Errorf("got %g, want %g", got, want)
	}
	if got := SkewToTheta(0, 1.2); got != 0 {
		t.Errorf("zero skew: got %g", got)
	}
}

func TestInitialOffsetPolicy(t *testing.T) {
	p := rail.DefaultParams()
	theta := SkewToTheta(5.0, p.WheelBase)

	tests := []struct {
		name    string
		spacing float64
		want    float64
	}{
		{"very tight follows skew", 0.001, p.WheelBase * math.Tan(theta) * 0.5},
		{"tight", 0.005, 0.001},
		{"mid", 0.020, 0.006},
		{"wide starts in contact", 0.100, 0.100 + 0.9*p.FlangeHeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitialOffset(tt.spacing, theta, p)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}

	// The wide-gap offset must actually reach the flange.
	if off := InitialOffset(0.1, theta, p); off <= 0.1 {
		t.Errorf("wide-gap offset %g does not reach the flange", off)
	}
}

func TestMetricsAndObserversSeeEverySample(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0.01
	cfg.MaxDuration = 0.5
	cfg.MaxDistance = 100

	s, err := New(rail.DefaultParams(), cfg, integrators.NewRK4())
	if err != nil {
		t.Fatal(err)
	}

	metric := &countingMetric{}
	obs := &countingObserver{}
	s.AddMetric(metric)
	s.AddObserver(obs)

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if metric.calls != len(res.Times) {
		t.Errorf("metric saw %d samples, trajectory has %d", metric.calls, len(res.Times))
	}
	if obs.calls != len(res.Times) {
		t.Errorf("observer saw %d samples, trajectory has %d", obs.calls, len(res.Times))
	}
	if got, ok := res.Metrics["samples"]; !ok || got != float64(metric.calls) {
		t.Errorf("metric value not collected: %v", res.Metrics)
	}
}

type countingMetric struct{ calls int }

func (c *countingMetric) Name() string { return "samples" }
func (c *countingMetric) Observe(x dynamo.State, left, right rail.ContactResult, t float64) {
	c.calls++
}
func (c *countingMetric) Value() float64 { return float64(c.calls) }
func (c *countingMetric) Reset()         { c.calls = 0 }

type countingObserver struct{ calls int }

func (c *countingObserver) OnStep(x dynamo.State, left, right rail.ContactResult, t float64) {
	c.calls++
}

func TestContactForceShim(t *testing.T) {
	s, err := New(rail.DefaultParams(), DefaultConfig(), integrators.NewRK4())
	if err != nil {
		t.Fatal(err)
	}

	left, right := s.ContactForce(0.012, 0)
	if left.Total() != 0 {
		t.Errorf("left should be free, got %g", left.Total())
	}
	if right.Total() <= 0 {
		t.Errorf("right should be loaded, got %g", right.Total())
	}
}
