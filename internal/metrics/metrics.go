// Package metrics provides incremental per-step run metrics so summary
// numbers are available without a second pass over the trajectory.
package metrics

import (
	"math"

	"github.com/san-kum/railsim/internal/dynamo"
	"github.com/san-kum/railsim/internal/rail"
	"github.com/san-kum/railsim/internal/sim"
)

// MaxForce tracks the peak combined contact force over a run.
type MaxForce struct {
	max float64
}

func NewMaxForce() *MaxForce { return &MaxForce{} }

func (m *MaxForce) Name() string { return "max_contact_force" }

func (m *MaxForce) Observe(x dynamo.State, left, right rail.ContactResult, t float64) {
	total := math.Abs(left.Total()) + math.Abs(right.Total())
	if total > m.max {
		m.max = total
	}
}

func (m *MaxForce) Value() float64 { return m.max }
func (m *MaxForce) Reset()         { m.max = 0 }

// MaxPenetration tracks the deepest flange penetration on either side.
type MaxPenetration struct {
	max float64
}

func NewMaxPenetration() *MaxPenetration { return &MaxPenetration{} }

func (m *MaxPenetration) Name() string { return "max_penetration" }

func (m *MaxPenetration) Observe(x dynamo.State, left, right rail.ContactResult, t float64) {
	if p := math.Max(left.Penetration, right.Penetration); p > m.max {
		m.max = p
	}
}

func (m *MaxPenetration) Value() float64 { return m.max }
func (m *MaxPenetration) Reset()         { m.max = 0 }

// LateralExcursion tracks the peak |y| the robot reaches.
type LateralExcursion struct {
	max float64
}

func NewLateralExcursion() *LateralExcursion { return &LateralExcursion{} }

func (m *LateralExcursion) Name() string { return "lateral_excursion" }

func (m *LateralExcursion) Observe(x dynamo.State, left, right rail.ContactResult, t float64) {
	if a := math.Abs(x[rail.IdxY]); a > m.max {
		m.max = a
	}
}

func (m *LateralExcursion) Value() float64 { return m.max }
func (m *LateralExcursion) Reset()         { m.max = 0 }

// Distance reports how far the robot traveled.
type Distance struct {
	last float64
}

func NewDistance() *Distance { return &Distance{} }

func (m *Distance) Name() string { return "distance" }

func (m *Distance) Observe(x dynamo.State, left, right rail.ContactResult, t float64) {
	m.last = x[rail.IdxX]
}

func (m *Distance) Value() float64 { return m.last }
func (m *Distance) Reset()         { m.last = 0 }

// Defaults is the standard set attached to CLI runs.
func Defaults() []sim.Metric {
	return []sim.Metric{
		NewMaxForce(), NewMaxPenetration(), NewLateralExcursion(), NewDistance(),
	}
}
