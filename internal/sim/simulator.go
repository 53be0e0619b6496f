package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/railsim/internal/dynamo"
	"github.com/san-kum/railsim/internal/rail"
)

// Simulator integrates the rail model for one scenario. It owns its
// parameters, geometry, and trajectory buffer; nothing is shared between
// simulators, so sweep runs are safe to execute concurrently.
type Simulator struct {
	params  rail.Params
	cfg     Config
	layout  rail.WheelLayout
	geom    rail.RailGeometry
	contact *rail.ContactModel
	dyn     *rail.Dynamics
	integ   dynamo.Integrator

	phase     Phase
	metrics   []Metric
	observers []Observer
}

// New validates the parameters and configuration and assembles the model.
// Fails fast with ErrInvalidParameter on any non-positive dimension,
// spacing, or numerical setting.
func New(params rail.Params, cfg Config, integ dynamo.Integrator) (*Simulator, error) {
	p, err := params.Validate()
	if err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	geom, err := rail.NewRailGeometry(p, cfg.Spacing, cfg.RailAngle, cfg.RailCurvature)
	if err != nil {
		return nil, err
	}
	contact := rail.NewContactModel(p, geom, cfg.Contact)

	return &Simulator{
		params:  p,
		cfg:     cfg,
		layout:  rail.NewWheelLayout(p),
		geom:    geom,
		contact: contact,
		dyn:     rail.NewDynamics(p, contact, cfg.Damping, cfg.Spacing),
		integ:   integ,
		phase:   PhaseUninitialized,
	}, nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Spacing <= 0:
		return fmt.Errorf("%w: spacing must be positive, got %g", dynamo.ErrInvalidParameter, cfg.Spacing)
	case cfg.Dt <= 0:
		return fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrInvalidParameter, cfg.Dt)
	case cfg.MaxDuration <= 0:
		return fmt.Errorf("%w: max duration must be positive, got %g", dynamo.ErrInvalidParameter, cfg.MaxDuration)
	case cfg.MaxDistance <= 0:
		return fmt.Errorf("%w: max distance must be positive, got %g", dynamo.ErrInvalidParameter, cfg.MaxDistance)
	case cfg.MaxSteps <= 0:
		return fmt.Errorf("%w: step budget must be positive, got %d", dynamo.ErrInvalidParameter, cfg.MaxSteps)
	case math.IsNaN(cfg.InitialTheta) || math.IsInf(cfg.InitialTheta, 0):
		return fmt.Errorf("%w: initial theta must be finite", dynamo.ErrInvalidParameter)
	}
	return nil
}

func (s *Simulator) Params() rail.Params      { return s.params }
func (s *Simulator) Config() Config           { return s.cfg }
func (s *Simulator) Phase() Phase             { return s.phase }
func (s *Simulator) AddMetric(m Metric)       { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)   { s.observers = append(s.observers, o) }
func (s *Simulator) Dynamics() *rail.Dynamics { return s.dyn }

// SkewToTheta converts a front-to-back skew in millimeters, the way
// commissioning crews measure misalignment, to an angle in radians.
func SkewToTheta(skewMM, wheelBase float64) float64 {
	return skewMM / 1000.0 / wheelBase
}

// InitialOffset is the scenario-construction heuristic for the starting
// lateral position. It is a modeling choice, not a physical default: tight
// gaps start near center so the misalignment alone decides whether contact
// happens, mid gaps start part-way across so there is room to oscillate,
// and wide gaps (beyond the stiffness-falloff threshold) start in contact,
// since a short run would otherwise never touch the flange at all.
func InitialOffset(spacing, theta float64, p rail.Params) float64 {
	switch {
	case spacing < 0.002:
		return p.WheelBase * math.Tan(theta) * 0.5
	case spacing < 0.010:
		return spacing * 0.2
	case spacing <= rail.WideSpacingThreshold:
		return spacing * 0.3
	default:
		return spacing + 0.9*p.FlangeHeight
	}
}

// plannedDuration is the time to cover MaxDistance under the
// accelerate-then-cruise profile, capped by the configured time budget.
func (s *Simulator) plannedDuration() float64 {
	tAccel := s.params.MaxSpeed / s.params.Acceleration
	dAccel := 0.5 * s.params.Acceleration * tAccel * tAccel

	var d float64
	if s.cfg.MaxDistance <= dAccel {
		d = math.Sqrt(2 * s.cfg.MaxDistance / s.params.Acceleration)
	} else {
		d = tAccel + (s.cfg.MaxDistance-dAccel)/s.params.MaxSpeed
	}
	return math.Min(d, s.cfg.MaxDuration)
}

func (s *Simulator) initialState() dynamo.State {
	y0 := s.cfg.InitialY
	if s.cfg.AutoOffset {
		y0 = InitialOffset(s.cfg.Spacing, s.cfg.InitialTheta, s.params)
	}
	x0 := make(dynamo.State, rail.StateDim)
	x0[rail.IdxY] = y0
	x0[rail.IdxTheta] = s.cfg.InitialTheta
	return x0
}

// Run integrates until the robot has traveled MaxDistance or the time
// budget elapses, recording state and both contact results at every step.
// Numerical divergence terminates the run early with a partial trajectory
// and the Diverged flag; it is never returned as an error so the analysis
// stage can still look at what exists. Run can be called exactly once.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if s.phase != PhaseUninitialized {
		return nil, fmt.Errorf("%w: simulator already %s, construct a new one per run",
			dynamo.ErrInvalidState, s.phase)
	}
	s.phase = PhaseRunning

	duration := s.plannedDuration()
	dt := s.cfg.Dt
	steps := int(duration / dt)
	budgetBound := steps > s.cfg.MaxSteps
	if budgetBound {
		steps = s.cfg.MaxSteps
	}

	res := &Result{
		Times:   make([]float64, 0, steps+1),
		States:  make([]dynamo.State, 0, steps+1),
		Left:    make([]rail.ContactResult, 0, steps+1),
		Right:   make([]rail.ContactResult, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := s.initialState()
	t := 0.0
	s.record(res, x, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(res)
			return res, ctx.Err()
		default:
		}

		x = s.integ.Step(s.dyn, x, t, dt)
		t += dt
		res.Steps++

		if !x.IsValid() {
			s.diverge(res, t, "non-finite state")
			break
		}
		if math.Abs(x[rail.IdxY]) > s.cfg.MaxLateral {
			s.diverge(res, t, fmt.Sprintf("lateral position %.3gm exceeded bound %.3gm",
				x[rail.IdxY], s.cfg.MaxLateral))
			break
		}

		s.record(res, x, t)

		if x[rail.IdxX] >= s.cfg.MaxDistance {
			break
		}
	}

	// Ending a run because the step budget ran out, rather than because the
	// robot got anywhere, is a failure the caller must be able to see.
	if budgetBound && !res.Diverged && x[rail.IdxX] < s.cfg.MaxDistance {
		s.diverge(res, t, fmt.Sprintf("step budget %d exhausted at %.3gm of %.3gm",
			s.cfg.MaxSteps, x[rail.IdxX], s.cfg.MaxDistance))
	}

	s.finish(res)
	return res, nil
}

func (s *Simulator) record(res *Result, x dynamo.State, t float64) {
	left, right := s.contact.Evaluate(x[rail.IdxX], x[rail.IdxY], x[rail.IdxVY])

	res.Times = append(res.Times, t)
	res.States = append(res.States, x.Clone())
	res.Left = append(res.Left, left)
	res.Right = append(res.Right, right)

	for _, m := range s.metrics {
		m.Observe(x, left, right, t)
	}
	for _, o := range s.observers {
		o.OnStep(x, left, right, t)
	}
}

func (s *Simulator) diverge(res *Result, t float64, reason string) {
	res.Diverged = true
	res.Reason = (&dynamo.SimulationError{
		Step:    res.Steps,
		Time:    t,
		Wrapped: fmt.Errorf("%w: %s", dynamo.ErrDiverged, reason),
	}).Error()
}

func (s *Simulator) finish(res *Result) {
	for _, m := range s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	s.phase = PhaseCompleted
}

// ContactForce evaluates the contact model at the start of the rail for a
// bare lateral state. Compatibility shim for callers that predate rail
// angle support; no logic of its own.
func (s *Simulator) ContactForce(y, vy float64) (left, right rail.ContactResult) {
	return s.contact.Evaluate(0, y, vy)
}
