// Package analysis turns a recorded trajectory into a stability verdict:
// ping-pong detection, climbing risk, peak force, and the energy the robot
// pumps into the rails.
package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/railsim/internal/dynamo"
	"github.com/san-kum/railsim/internal/rail"
)

// Thresholds are the classification limits. All defaults trace to the
// rail-guided vehicle guidance the model was built around and can be
// overridden per run.
type Thresholds struct {
	MaxSafeContactForce  float64 `yaml:"max_safe_contact_force" json:"maxSafeContactForce"` // N
	ClimbingForceRatio   float64 `yaml:"climbing_force_ratio" json:"climbingForceRatio"`    // fraction of weight
	ClimbingPenRatio     float64 `yaml:"climbing_pen_ratio" json:"climbingPenRatio"`        // fraction of flange height
	EnergyLimit          float64 `yaml:"energy_limit" json:"energyLimit"`                   // J
	HitForce             float64 `yaml:"hit_force" json:"hitForce"`                         // N, contact / no-contact boundary
	MaxHitsPer10m        float64 `yaml:"max_hits_per_10m" json:"maxHitsPer10m"`
	FreqTight            float64 `yaml:"freq_tight" json:"freqTight"` // Hz, spacing <= 50mm
	FreqWide             float64 `yaml:"freq_wide" json:"freqWide"`   // Hz, spacing > 50mm
	GrowthSlope          float64 `yaml:"growth_slope" json:"growthSlope"` // m per window
	GrowthAmplitudeRatio float64 `yaml:"growth_amplitude_ratio" json:"growthAmplitudeRatio"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxSafeContactForce:  50_000,
		ClimbingForceRatio:   0.4,
		ClimbingPenRatio:     0.8,
		EnergyLimit:          1000,
		HitForce:             10,
		MaxHitsPer10m:        10,
		FreqTight:            0.5,
		FreqWide:             0.3,
		GrowthSlope:          0.001,
		GrowthAmplitudeRatio: 1.5,
	}
}

// FrequencyThreshold is the ping-pong frequency limit as a function of
// spacing: wide gaps oscillate more readily, so the bar is lower there.
func (t Thresholds) FrequencyThreshold(spacing float64) float64 {
	if spacing > rail.WideSpacingThreshold {
		return t.FreqWide
	}
	return t.FreqTight
}

// Verdict is the immutable outcome of analyzing one run.
type Verdict struct {
	// Flags. Independent; any subset may be set.
	PingPonging      bool `json:"pingPonging"`
	ClimbingRiskHigh bool `json:"climbingRiskHigh"`
	ExcessiveForce   bool `json:"excessiveForce"`
	ExcessiveEnergy  bool `json:"excessiveEnergy"`

	// Diverged is carried over from the run so a truncated trajectory can
	// never masquerade as a clean stable result.
	Diverged bool `json:"diverged"`

	OscillationFrequency float64 `json:"oscillationFrequency"` // Hz
	ZeroCrossings        int     `json:"zeroCrossings"`
	RailHits             int     `json:"railHits"`
	HitsPer10m           float64 `json:"hitsPer10m"`
	MaxContactForce      float64 `json:"maxContactForce"` // N
	MaxPenetration       float64 `json:"maxPenetration"`  // m
	MaxPenetrationRatio  float64 `json:"maxPenetrationRatio"`
	ClimbingForceRatio   float64 `json:"climbingForceRatio"`
	EnergyImparted       float64 `json:"energyImparted"` // J

	LateralMax     float64 `json:"lateralMax"` // m
	LateralStd     float64 `json:"lateralStd"`
	AngularMax     float64 `json:"angularMax"` // rad
	AngularStd     float64 `json:"angularStd"`
	AmplitudeTrend float64 `json:"amplitudeTrend"` // m per window
	Growing        bool    `json:"growing"`
}

// Stable reports whether no instability flag is set.
func (v *Verdict) Stable() bool {
	return !v.PingPonging && !v.ClimbingRiskHigh && !v.ExcessiveForce &&
		!v.ExcessiveEnergy && !v.Diverged
}

// Analyzer classifies trajectories for one spacing. It holds no mutable
// state: Analyze is a pure function of its inputs and may be called any
// number of times.
type Analyzer struct {
	params  rail.Params
	spacing float64
	cfg     Thresholds
}

func NewAnalyzer(params rail.Params, spacing float64, cfg Thresholds) *Analyzer {
	return &Analyzer{params: params, spacing: spacing, cfg: cfg}
}

// Analyze computes the verdict for a recorded trajectory. The diverged flag
// should be the run's own; it is copied into the verdict. Fails with
// ErrInvalidState on an empty or inconsistent trajectory.
func (a *Analyzer) Analyze(times []float64, states []dynamo.State, left, right []rail.ContactResult, diverged bool) (*Verdict, error) {
	n := len(times)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty trajectory", dynamo.ErrInvalidState)
	}
	if len(states) != n || len(left) != n || len(right) != n {
		return nil, fmt.Errorf("%w: trajectory slices disagree (%d times, %d states, %d/%d contacts)",
			dynamo.ErrInvalidState, n, len(states), len(left), len(right))
	}

	v := &Verdict{Diverged: diverged}

	ys := make([]float64, n)
	thetas := make([]float64, n)
	vys := make([]float64, n)
	for i, s := range states {
		ys[i] = s[rail.IdxY]
		thetas[i] = s[rail.IdxTheta]
		vys[i] = s[rail.IdxVY]
	}

	v.LateralMax = maxAbs(ys)
	v.LateralStd = stddev(ys)
	v.AngularMax = maxAbs(thetas)
	v.AngularStd = stddev(thetas)

	for i := range left {
		total := math.Abs(left[i].Total()) + math.Abs(right[i].Total())
		if total > v.MaxContactForce {
			v.MaxContactForce = total
		}
		if p := math.Max(left[i].Penetration, right[i].Penetration); p > v.MaxPenetration {
			v.MaxPenetration = p
		}
	}
	v.MaxPenetrationRatio = v.MaxPenetration / a.params.FlangeHeight
	v.ClimbingForceRatio = v.MaxContactForce / a.params.Weight()

	v.ZeroCrossings = zeroCrossings(vys)
	if T := times[n-1]; T > 0 {
		v.OscillationFrequency = float64(v.ZeroCrossings) / (2 * T)
	}

	v.RailHits = countHits(left, a.cfg.HitForce) + countHits(right, a.cfg.HitForce)
	v.HitsPer10m = float64(v.RailHits)
	if dist := states[n-1][rail.IdxX] - states[0][rail.IdxX]; dist > 0.1 {
		v.HitsPer10m = float64(v.RailHits) * 10.0 / dist
	}

	v.EnergyImparted = energyImparted(times, vys, left, right)

	v.AmplitudeTrend = amplitudeTrend(ys)
	v.Growing = v.AmplitudeTrend > a.cfg.GrowthSlope

	v.PingPonging = v.OscillationFrequency > a.cfg.FrequencyThreshold(a.spacing) ||
		v.HitsPer10m > a.cfg.MaxHitsPer10m ||
		(v.Growing && v.LateralMax > a.cfg.GrowthAmplitudeRatio*a.spacing)

	v.ClimbingRiskHigh = v.MaxPenetrationRatio > a.cfg.ClimbingPenRatio ||
		v.ClimbingForceRatio > a.cfg.ClimbingForceRatio

	v.ExcessiveForce = v.MaxContactForce > a.cfg.MaxSafeContactForce
	v.ExcessiveEnergy = v.EnergyImparted > a.cfg.EnergyLimit

	return v, nil
}

// countHits counts no-contact to contact transitions: force rising through
// the hit threshold. The threshold keeps numerical chatter around zero from
// registering as hits.
func countHits(forces []rail.ContactResult, threshold float64) int {
	hits := 0
	for i := 1; i < len(forces); i++ {
		if forces[i].Total() > threshold && forces[i-1].Total() <= threshold {
			hits++
		}
	}
	return hits
}

// energyImparted integrates contact power over the samples where it flows
// into a rail: the left flange absorbs energy while the robot moves left
// into it, the right while it moves right. Elastic return is not counted,
// so the result is non-negative and non-decreasing in trajectory length.
func energyImparted(times, vys []float64, left, right []rail.ContactResult) float64 {
	power := func(i int) float64 {
		p := 0.0
		if l := left[i].Total(); l > 0 && vys[i] < 0 {
			p += l * -vys[i]
		}
		if r := right[i].Total(); r > 0 && vys[i] > 0 {
			p += r * vys[i]
		}
		return p
	}

	energy := 0.0
	for i := 1; i < len(times); i++ {
		energy += 0.5 * (power(i-1) + power(i)) * (times[i] - times[i-1])
	}
	return energy
}

// zeroCrossings counts sign changes, treating exact zero as its own sign so
// a touch-and-return registers.
func zeroCrossings(vs []float64) int {
	if len(vs) == 0 {
		return 0
	}
	crossings := 0
	prev := sign(vs[0])
	for _, v := range vs[1:] {
		s := sign(v)
		if s != prev {
			crossings++
			prev = s
		}
	}
	return crossings
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
