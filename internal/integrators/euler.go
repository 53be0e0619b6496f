package integrators

import "github.com/san-kum/railsim/internal/dynamo"

// Euler is the explicit first-order method. Mostly useful for quick
// comparisons; the contact model is stiff enough that RK4 at the default
// step is the sensible choice.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
