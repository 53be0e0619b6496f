package rail

import "math"

// WideSpacingThreshold is the gap above which contact is treated as
// progressively softer. See EffectiveStiffness.
const WideSpacingThreshold = 0.05

// ContactConfig holds the tunable coefficients of the flange contact model.
type ContactConfig struct {
	Stiffness        float64 // N/m
	Damping          float64 // N·s/m
	Friction         float64 // Coulomb coefficient
	FrictionDeadband float64 // m/s, below this sliding speed friction is zero
}

func DefaultContactConfig() ContactConfig {
	return ContactConfig{
		Stiffness:        1e6,
		Damping:          2e3,
		Friction:         0.3,
		FrictionDeadband: 0.01,
	}
}

// ContactResult is the outcome of evaluating one guide wheel against its
// flange at one instant. Friction is signed along the side's push-back
// direction, so Total is the scalar force the side applies toward the rail
// center.
type ContactResult struct {
	Side        Side    `json:"side"`
	Penetration float64 `json:"penetration"` // m, clamped to [0, flange height]
	Normal      float64 `json:"normal"`      // N, >= 0
	Friction    float64 `json:"friction"`    // N, signed
	Stiffness   float64 `json:"stiffness"`   // N/m actually used
}

// Total is the side's lumped contact force toward the rail center.
func (r ContactResult) Total() float64 { return r.Normal + r.Friction }

// ContactModel computes guide wheel / flange contact forces.
//
// Both sides are always evaluated independently and their forces summed by
// the dynamics. There is no combined-penetration cap, so a configuration
// that somehow loads both flanges at once produces a net squeeze; that is a
// known limitation of the model, kept rather than papered over.
type ContactModel struct {
	params Params
	geom   RailGeometry
	cfg    ContactConfig
}

func NewContactModel(p Params, geom RailGeometry, cfg ContactConfig) *ContactModel {
	return &ContactModel{params: p, geom: geom, cfg: cfg}
}

func (m *ContactModel) Config() ContactConfig { return m.cfg }

// EffectiveStiffness reduces the configured stiffness for gaps above
// WideSpacingThreshold by sqrt(0.05/spacing). This is an uncalibrated
// engineering approximation for the less rigid contact of a wide gap, not a
// measured law.
func EffectiveStiffness(stiffness, spacing float64) float64 {
	if spacing > WideSpacingThreshold {
		return stiffness * math.Sqrt(WideSpacingThreshold/spacing)
	}
	return stiffness
}

// Evaluate computes both sides' contact at forward distance d, lateral
// position y, lateral velocity vy. Rail angle and curvature enter through
// the shifted flange positions only.
func (m *ContactModel) Evaluate(d, y, vy float64) (left, right ContactResult) {
	shift := m.geom.LateralShift(d)
	rel := y - shift // lateral position relative to the (possibly shifted) rail pair

	// Penetration grows leftward for the left flange, rightward for the
	// right one; the penetration rate is the sliding speed into the flange.
	left = m.side(SideLeft, -rel-m.geom.Spacing, -vy)
	right = m.side(SideRight, rel-m.geom.Spacing, vy)
	return left, right
}

func (m *ContactModel) side(s Side, overlap, rate float64) ContactResult {
	res := ContactResult{Side: s}
	if overlap <= 0 {
		return res
	}

	// The clamp to flange height stands in for the wheel climbing on top of
	// the flange instead of penetrating further.
	res.Penetration = math.Min(overlap, m.params.FlangeHeight)
	res.Stiffness = EffectiveStiffness(m.cfg.Stiffness, m.geom.Spacing)

	normal := res.Stiffness*res.Penetration + m.cfg.Damping*rate
	if normal < 0 {
		normal = 0 // contact cannot pull
	}
	res.Normal = normal

	if math.Abs(rate) > m.cfg.FrictionDeadband && normal > 0 {
		res.Friction = m.cfg.Friction * normal * sign(rate)
	}
	return res
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
