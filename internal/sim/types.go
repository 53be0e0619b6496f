package sim

import (
	"github.com/san-kum/railsim/internal/dynamo"
	"github.com/san-kum/railsim/internal/rail"
)

// Phase is the simulator lifecycle. A simulator is single-shot: construct,
// run once, read the result. There is no reset.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseRunning
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

// Config is one run's scenario: the gap, the initial misalignment, the rail
// shape, and the numerical settings. Contact and damping coefficients are
// embedded so a run can override any of the model heuristics.
type Config struct {
	Spacing      float64 // m, guide wheel to flange gap when centered
	InitialTheta float64 // rad, initial misalignment

	RailAngle     float64 // rad, constant rail angle
	RailCurvature float64 // rad/m

	Dt          float64 // s, integration step
	MaxDuration float64 // s, time budget
	MaxDistance float64 // m, stop once traveled this far

	// AutoOffset selects the scenario-construction heuristic in
	// InitialOffset; clear it to start from InitialY instead.
	AutoOffset bool
	InitialY   float64 // m, used when AutoOffset is false

	Contact rail.ContactConfig
	Damping rail.DampingConfig

	// Divergence guards. A run that trips either stops early and reports a
	// partial trajectory with the Diverged flag set.
	MaxLateral float64 // m, |y| beyond this is considered diverged
	MaxSteps   int
}

func DefaultConfig() Config {
	return Config{
		Spacing:      0.010,
		InitialTheta: SkewToTheta(5.0, DefaultWheelBase),
		Dt:           0.001,
		MaxDuration:  30.0,
		MaxDistance:  10.0,
		AutoOffset:   true,
		Contact:      rail.DefaultContactConfig(),
		Damping:      rail.DefaultDampingConfig(),
		MaxLateral:   1.0,
		MaxSteps:     200_000,
	}
}

// DefaultWheelBase mirrors rail.DefaultParams().WheelBase for config-level
// conversions that happen before a Params value exists.
const DefaultWheelBase = 1.2

// Result is the recorded trajectory of one run plus its termination status.
// Left/Right hold the contact evaluation at every recorded sample.
type Result struct {
	Times  []float64
	States []dynamo.State
	Left   []rail.ContactResult
	Right  []rail.ContactResult

	Diverged bool
	Reason   string
	Steps    int

	Metrics map[string]float64
}

func (r *Result) Duration() float64 {
	if len(r.Times) == 0 {
		return 0
	}
	return r.Times[len(r.Times)-1]
}

func (r *Result) Distance() float64 {
	if len(r.States) == 0 {
		return 0
	}
	return r.States[len(r.States)-1][rail.IdxX]
}

// Metric accumulates a scalar over a run without retaining the trajectory.
type Metric interface {
	Name() string
	Observe(x dynamo.State, left, right rail.ContactResult, t float64)
	Value() float64
	Reset()
}

// Observer is called at every recorded sample; used by the live view and
// the websocket stream.
type Observer interface {
	OnStep(x dynamo.State, left, right rail.ContactResult, t float64)
}
