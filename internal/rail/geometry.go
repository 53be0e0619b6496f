package rail

import (
	"fmt"
	"math"

	"github.com/san-kum/railsim/internal/dynamo"
)

// WheelLayout holds the wheel positions derived from Params, in robot-body
// coordinates (x forward, y to the right, origin at the body center).
type WheelLayout struct {
	params Params

	// Drive wheel x centers, front to rear. Same on both sides.
	DriveWheelX [4]float64

	// Guide wheels sit between the two drive wheel sets.
	GuideCenterX float64
	GuideFrontX  float64
	GuideRearX   float64
	GuideLeftY   float64
	GuideRightY  float64

	// MaxDriveWheelOffset is how far the body can shift laterally before a
	// drive wheel leaves the rail's horizontal running surface.
	MaxDriveWheelOffset float64
}

func NewWheelLayout(p Params) WheelLayout {
	var l WheelLayout
	l.params = p

	l.DriveWheelX[0] = -p.WheelBase / 2
	l.DriveWheelX[1] = l.DriveWheelX[0] + p.WheelSpacingInSet
	l.DriveWheelX[2] = l.DriveWheelX[1] + p.WheelSetSeparation
	l.DriveWheelX[3] = l.DriveWheelX[2] + p.WheelSpacingInSet

	l.GuideCenterX = (l.DriveWheelX[1] + l.DriveWheelX[2]) / 2
	l.GuideFrontX = l.GuideCenterX - p.GuideWheelSeparation/2
	l.GuideRearX = l.GuideCenterX + p.GuideWheelSeparation/2
	l.GuideLeftY = -p.GuideWheelSpan / 2
	l.GuideRightY = p.GuideWheelSpan / 2

	if p.RailSurfaceWidth > p.DriveWheelWidth {
		l.MaxDriveWheelOffset = (p.RailSurfaceWidth - p.DriveWheelWidth) / 2
	}
	return l
}

// MaxLateralOffset is the distance the body can shift before either a drive
// wheel leaves the running surface or a guide wheel crosses its flange gap,
// whichever binds first. Spacing must be positive.
func (l WheelLayout) MaxLateralOffset(spacing float64) (float64, error) {
	if spacing <= 0 {
		return 0, fmt.Errorf("%w: spacing must be positive, got %g",
			dynamo.ErrInvalidParameter, spacing)
	}
	return math.Min(l.MaxDriveWheelOffset, spacing), nil
}

// Side identifies one rail flange. Left is negative y.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// RailGeometry is the pure rail configuration: the nominal guide-wheel gap
// and an optional constant angle and curvature describing how the rail pair
// deviates from straight.
type RailGeometry struct {
	params Params

	Spacing   float64 // m, wheel edge to flange with the robot centered
	Angle     float64 // rad, constant rail angle
	Curvature float64 // rad/m, angle change per meter traveled
}

func NewRailGeometry(p Params, spacing, angle, curvature float64) (RailGeometry, error) {
	if spacing <= 0 {
		return RailGeometry{}, fmt.Errorf("%w: spacing must be positive, got %g",
			dynamo.ErrInvalidParameter, spacing)
	}
	return RailGeometry{params: p, Spacing: spacing, Angle: angle, Curvature: curvature}, nil
}

// LateralShift is how far both flanges have moved sideways at distance d:
// the integral of the angle profile, angle·d + curvature·d²/2.
func (g RailGeometry) LateralShift(d float64) float64 {
	return g.Angle*d + 0.5*g.Curvature*d*d
}

// AngleAt is the rail angle at distance d.
func (g RailGeometry) AngleAt(d float64) float64 {
	return g.Angle + g.Curvature*d
}

// FlangePosition is the lateral position of one flange face at distance d,
// in the same frame as the robot's y. With the robot centered on straight
// rail, each guide wheel's contact edge sits exactly Spacing away from its
// flange.
func (g RailGeometry) FlangePosition(side Side, d float64) float64 {
	halfWidth := g.params.GuideWheelWidth / 2
	edge := g.params.GuideWheelSpan/2 + halfWidth // outer contact edge, centered robot
	base := edge + g.Spacing
	if side == SideLeft {
		base = -base
	}
	return base + g.LateralShift(d)
}
