// Package rail models a rail-guided pallet robot: its physical parameters,
// the wheel/flange geometry, the guide-wheel contact forces, and the planar
// rigid-body dynamics that couple them.
package rail

import (
	"fmt"

	"github.com/san-kum/railsim/internal/dynamo"
)

const Gravity = 9.81

// Params holds the physical constants of the robot and rail. Construct with
// DefaultParams or validate a modified copy with Validate before use; the
// simulator treats a validated Params value as immutable.
type Params struct {
	RobotMass  float64 // kg
	PalletMass float64 // kg, worst-case payload

	MaxSpeed     float64 // m/s
	Acceleration float64 // m/s^2

	// Drive wheels: two 2-wheel sets per side, in a single line.
	DriveWheelDiameter float64 // m
	DriveWheelWidth    float64 // m
	WheelSpacingInSet  float64 // m, between the wheels of one set
	WheelSetSeparation float64 // m, between first wheels of the two sets

	// Guide wheels: horizontal, bear against the flanges.
	GuideWheelDiameter   float64 // m
	GuideWheelWidth      float64 // m
	GuideWheelSeparation float64 // m, front-to-back on one side
	GuideWheelSpan       float64 // m, left wheel center to right wheel center

	WheelBase float64 // m, outside face to outside face

	FlangeHeight     float64 // m, vertical flange height
	RailSurfaceWidth float64 // m, horizontal running surface
	FlangeSeparation float64 // m, fixed distance between the flanges

	// MomentOfInertia is derived from the masses and wheel base; zero means
	// "derive for me" and is filled in by Validate.
	MomentOfInertia float64 // kg·m^2
}

func DefaultParams() Params {
	p := Params{
		RobotMass:            227.0,  // 500 lbs
		PalletMass:           1361.0, // 3000 lbs
		MaxSpeed:             1.5,
		Acceleration:         0.75,
		DriveWheelDiameter:   0.1,
		DriveWheelWidth:      0.0381,
		WheelSpacingInSet:    0.105,
		WheelSetSeparation:   0.749,
		GuideWheelDiameter:   0.08,
		GuideWheelWidth:      0.016,
		GuideWheelSeparation: 0.464,
		GuideWheelSpan:       1.1192,
		WheelBase:            1.2,
		FlangeHeight:         0.020,
		RailSurfaceWidth:     0.06604, // 2.6 in
		FlangeSeparation:     1.2192,  // 48 in
	}
	p.MomentOfInertia = deriveInertia(p)
	return p
}

// Rectangular-body approximation using the wheel base as the length.
func deriveInertia(p Params) float64 {
	return p.TotalMass() * p.WheelBase * p.WheelBase / 12.0
}

func (p Params) TotalMass() float64 { return p.RobotMass + p.PalletMass }

func (p Params) Weight() float64 { return p.TotalMass() * Gravity }

// Validate checks every mass and geometric dimension is strictly positive
// and returns a copy with the moment of inertia derived if unset.
func (p Params) Validate() (Params, error) {
	checks := []struct {
		name string
		v    float64
	}{
		{"robot mass", p.RobotMass},
		{"pallet mass", p.PalletMass},
		{"max speed", p.MaxSpeed},
		{"acceleration", p.Acceleration},
		{"drive wheel diameter", p.DriveWheelDiameter},
		{"drive wheel width", p.DriveWheelWidth},
		{"wheel spacing in set", p.WheelSpacingInSet},
		{"wheel set separation", p.WheelSetSeparation},
		{"guide wheel diameter", p.GuideWheelDiameter},
		{"guide wheel width", p.GuideWheelWidth},
		{"guide wheel separation", p.GuideWheelSeparation},
		{"guide wheel span", p.GuideWheelSpan},
		{"wheel base", p.WheelBase},
		{"flange height", p.FlangeHeight},
		{"rail surface width", p.RailSurfaceWidth},
		{"flange separation", p.FlangeSeparation},
	}
	for _, c := range checks {
		if c.v <= 0 {
			return Params{}, fmt.Errorf("%w: %s must be positive, got %g",
				dynamo.ErrInvalidParameter, c.name, c.v)
		}
	}
	if p.GuideWheelSpan >= p.FlangeSeparation {
		return Params{}, fmt.Errorf("%w: guide wheel span %g must be inside flange separation %g",
			dynamo.ErrInvalidParameter, p.GuideWheelSpan, p.FlangeSeparation)
	}
	if p.MomentOfInertia == 0 {
		p.MomentOfInertia = deriveInertia(p)
	}
	return p, nil
}
