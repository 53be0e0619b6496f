package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestStateClone(t *testing.T) {
	s := State{1, 2, 3}
	c := s.Clone()
	c[0] = 99

	if s[0] != 1 {
		t.Error("clone shares backing array with original")
	}
}

func TestStateIsValid(t *testing.T) {
	tests := []struct {
		name string
		s    State
		want bool
	}{
		{"finite", State{1, -2, 0}, true},
		{"empty", State{}, true},
		{"nan", State{1, math.NaN()}, false},
		{"positive inf", State{math.Inf(1)}, false},
		{"negative inf", State{0, math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.IsValid(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateNorm(t *testing.T) {
	if got := (State{3, 4}).Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("got %g, want 5", got)
	}
	if got := (State{}).Norm(); got != 0 {
		t.Errorf("empty norm: got %g", got)
	}
}

func TestSimulationErrorUnwraps(t *testing.T) {
	err := &SimulationError{
		Step:    42,
		Time:    1.5,
		Wrapped: ErrDiverged,
	}

	if !errors.Is(err, ErrDiverged) {
		t.Error("SimulationError should unwrap to its cause")
	}
	msg := err.Error()
	if msg == "" || !errors.Is(err.Unwrap(), ErrDiverged) {
		t.Errorf("error text: %q", msg)
	}
}
