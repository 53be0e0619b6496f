package dynamo

import "math"

// State is a dense state vector. For the rail model the layout is
// [x, y, theta, vx, vy, omega]; see the index constants in internal/rail.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// System is a time-dependent ODE right-hand side.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Integrator advances a System by a single fixed step.
type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}
