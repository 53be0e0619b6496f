package rail

import (
	"math"

	"github.com/san-kum/railsim/internal/dynamo"
)

// State vector layout for the rail model.
const (
	IdxX     = iota // forward distance (m)
	IdxY            // lateral position (m)
	IdxTheta        // orientation (rad)
	IdxVX           // forward velocity (m/s)
	IdxVY           // lateral velocity (m/s)
	IdxOmega        // angular velocity (rad/s)
	StateDim
)

// DampingConfig collects the stabilizing coefficients of the planar model.
// None of these are calibrated against hardware; they are sized so the model
// holds together numerically and are all overridable.
type DampingConfig struct {
	AngularLinear    float64 // N·m·s/rad
	AngularQuadratic float64 // N·m·s²/rad²
	Lateral          float64 // N·s/m
	LateralExcess    float64 // N·s/m, extra damping above the velocity ratio
	MaxLateralRatio  float64 // |vy| is held near this fraction of vx

	RestoringHard float64 // N·m/rad beyond the geometric angle limit
	RestoringSoft float64 // N·m/rad in the approach band
	SoftBand      float64 // fraction of the limit where the soft torque starts
}

func DefaultDampingConfig() DampingConfig {
	return DampingConfig{
		AngularLinear:    2000,
		AngularQuadratic: 1000,
		Lateral:          50,
		LateralExcess:    100,
		MaxLateralRatio:  0.3,
		RestoringHard:    1e6,
		RestoringSoft:    1e4,
		SoftBand:         0.8,
	}
}

// Dynamics is the state derivative of the robot: forward speed ramp, lateral
// and angular response to guide-wheel contact, and the coupling between
// forward motion and misalignment. It is a pure function of its inputs.
type Dynamics struct {
	params  Params
	contact *ContactModel
	damping DampingConfig
	spacing float64
}

func NewDynamics(p Params, contact *ContactModel, damping DampingConfig, spacing float64) *Dynamics {
	return &Dynamics{params: p, contact: contact, damping: damping, spacing: spacing}
}

func (d *Dynamics) StateDim() int { return StateDim }

// NetTorque is the yaw torque from one pair of side forces. The lever arm is
// half the front-to-back guide wheel separation: the guide wheels sit
// between the drive wheel sets, and it is their spread, not the wheel base,
// that reacts the moment.
func NetTorque(left, right ContactResult, p Params) float64 {
	return (left.Total() - right.Total()) * p.GuideWheelSeparation / 2
}

// MaxMisalignment is the largest orientation the flange gap permits: the
// robot can skew until its guide wheels span the gap, arctan(spacing / wheel
// base).
func MaxMisalignment(spacing float64, p Params) float64 {
	if spacing <= 0 {
		return 0
	}
	return math.Atan(spacing / p.WheelBase)
}

func (d *Dynamics) Derive(x dynamo.State, t float64) dynamo.State {
	pos := x[IdxX]
	y := x[IdxY]
	theta := x[IdxTheta]
	vx := x[IdxVX]
	vy := x[IdxVY]
	omega := x[IdxOmega]

	mass := d.params.TotalMass()

	// Forward: constant acceleration to max speed, then hold. The /0.1 term
	// rounds off the corner so the ramp is integrator-friendly.
	ax := 0.0
	if vx < d.params.MaxSpeed {
		ax = math.Min(d.params.Acceleration, (d.params.MaxSpeed-vx)/0.1)
	}

	left, right := d.contact.Evaluate(pos, y, vy)

	// Left pushes toward +y, right toward -y.
	fy := left.Total() - right.Total()

	torque := NetTorque(left, right, d.params)
	torque += d.restoringTorque(theta)
	torque += -d.damping.AngularLinear*omega - d.damping.AngularQuadratic*omega*math.Abs(omega)
	alpha := torque / d.params.MomentOfInertia

	// Forward motion with yaw drags the body sideways.
	coupling := -mass * vx * omega

	fy += coupling + d.lateralDamping(vx, vy)

	return dynamo.State{vx, vy, omega, ax, fy / mass, alpha}
}

// restoringTorque enforces the geometric skew limit: a hard corrective
// torque beyond MaxMisalignment, a soft one on approach. The flanges simply
// do not let the robot rotate further.
func (d *Dynamics) restoringTorque(theta float64) float64 {
	limit := MaxMisalignment(d.spacing, d.params)
	if limit == 0 {
		return 0
	}
	abs := math.Abs(theta)
	switch {
	case abs > limit:
		return -d.damping.RestoringHard * (abs - limit) * sign(theta)
	case abs > limit*d.damping.SoftBand:
		return -d.damping.RestoringSoft * (abs/limit - d.damping.SoftBand) * sign(theta)
	}
	return 0
}

// lateralDamping keeps |vy| in the neighborhood of MaxLateralRatio·vx, with
// a stiffer term once the ratio is exceeded.
func (d *Dynamics) lateralDamping(vx, vy float64) float64 {
	f := -d.damping.Lateral * vy
	if vx > 0.1 {
		limit := math.Abs(vx) * d.damping.MaxLateralRatio
		if excess := math.Abs(vy) - limit; excess > 0 {
			f += -d.damping.LateralExcess * excess * sign(vy)
		}
	}
	return f
}
