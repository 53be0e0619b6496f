package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a non-positive mass or geometric
	// dimension, or an otherwise out-of-range configuration value.
	ErrInvalidParameter = errors.New("railsim: invalid parameter")

	// ErrInvalidState indicates an operation performed in the wrong phase,
	// such as re-running a completed simulator or analyzing an empty
	// trajectory.
	ErrInvalidState = errors.New("railsim: invalid state")

	// ErrDiverged indicates the integrator exceeded a safety bound on state
	// magnitude or step count. Runs terminate early with a flagged partial
	// trajectory rather than surfacing this as a failure.
	ErrDiverged = errors.New("railsim: numerical divergence")
)

// SimulationError wraps an error with the step at which it occurred.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4fs): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
