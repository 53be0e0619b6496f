package rail

import (
	"math"
	"testing"
)

func newTestModel(t *testing.T, spacing float64) *ContactModel {
	t.Helper()
	p := DefaultParams()
	g, err := NewRailGeometry(p, spacing, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	return NewContactModel(p, g, DefaultContactConfig())
}

func TestNoContactInsideGap(t *testing.T) {
	m := newTestModel(t, 0.01)

	for _, y := range []float64{0, 0.005, -0.005, 0.00999, -0.00999} {
		left, right := m.Evaluate(0, y, 0)
		if left.Total() != 0 || right.Total() != 0 {
			t.Errorf("y=%g: expected no contact, got left=%g right=%g", y, left.Total(), right.Total())
		}
		if left.Penetration != 0 || right.Penetration != 0 {
			t.Errorf("y=%g: expected zero penetration", y)
		}
	}
}

func TestContactSidesAndSpringForce(t *testing.T) {
	m := newTestModel(t, 0.01)

	// 2 mm into the right flange, no velocity: pure spring force.
	left, right := m.Evaluate(0, 0.012, 0)
	if left.Total() != 0 {
		t.Errorf("left should be free, got %g", left.Total())
	}
	if math.Abs(right.Penetration-0.002) > 1e-12 {
		t.Errorf("right penetration: got %g, want 0.002", right.Penetration)
	}
	want := 1e6 * 0.002
	if math.Abs(right.Normal-want) > 1e-6 {
		t.Errorf("right normal: got %g, want %g", right.Normal, want)
	}

	// Mirror case.
	left, right = m.Evaluate(0, -0.012, 0)
	if right.Total() != 0 {
		t.Errorf("right should be free, got %g", right.Total())
	}
	if math.Abs(left.Penetration-0.002) > 1e-12 {
		t.Errorf("left penetration: got %g, want 0.002", left.Penetration)
	}
}

func TestPenetrationClampedToFlangeHeight(t *testing.T) {
	m := newTestModel(t, 0.01)
	p := DefaultParams()

	_, right := m.Evaluate(0, 0.2, 0)
	if right.Penetration != p.FlangeHeight {
		t.Errorf("penetration should clamp at flange height %g, got %g",
			p.FlangeHeight, right.Penetration)
	}
}

func TestEffectiveStiffness(t *testing.T) {
	tests := []struct {
		spacing float64
		want    float64
	}{
		{0.010, 1e6},
		{0.050, 1e6},
		{0.100, 1e6 * math.Sqrt(0.5)},
		{0.200, 1e6 * 0.5},
	}
	for _, tt := range tests {
		if got := EffectiveStiffness(1e6, tt.spacing); math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("spacing %g: got %g, want %g", tt.spacing, got, tt.want)
		}
	}
}

func TestWideGapUsesReducedStiffness(t *testing.T) {
	m := newTestModel(t, 0.1)

	_, right := m.Evaluate(0, 0.11, 0)
	wantK := 1e6 * math.Sqrt(0.5)
	if math.Abs(right.Stiffness-wantK) > 1e-3 {
		t.Errorf("stiffness used: got %g, want %g", right.Stiffness, wantK)
	}
	if math.Abs(right.Normal-wantK*0.01) > 1e-3 {
		t.Errorf("normal: got %g, want %g", right.Normal, wantK*0.01)
	}
}

func TestNormalForceCannotPull(t *testing.T) {
	m := newTestModel(t, 0.01)

	// Shallow penetration, fast separation: damping would make the spring
	// force negative.
	_, right := m.Evaluate(0, 0.0101, -1.0)
	if right.Normal != 0 {
		t.Errorf("separating contact should clamp to zero, got %g", right.Normal)
	}
	if right.Friction != 0 {
		t.Errorf("no friction without normal force, got %g", right.Friction)
	}
	if right.Penetration == 0 {
		t.Error("penetration should still be reported")
	}
}

func TestFrictionDeadband(t *testing.T) {
	m := newTestModel(t, 0.01)

	// Penetrating slowly: within the deadband, friction is zero.
	_, right := m.Evaluate(0, 0.012, 0.005)
	if right.Friction != 0 {
		t.Errorf("friction inside deadband: got %g", right.Friction)
	}

	// Penetrating fast: friction is mu * N, signed with the sliding rate.
	_, right = m.Evaluate(0, 0.012, 0.1)
	wantN := 1e6*0.002 + 2e3*0.1
	if math.Abs(right.Normal-wantN) > 1e-6 {
		t.Fatalf("normal: got %g, want %g", right.Normal, wantN)
	}
	if math.Abs(right.Friction-0.3*wantN) > 1e-6 {
		t.Errorf("friction: got %g, want %g", right.Friction, 0.3*wantN)
	}
	if right.Total() <= right.Normal {
		t.Error("total should include friction while penetrating")
	}
}

func TestContactFollowsShiftedRail(t *testing.T) {
	p := DefaultParams()
	g, err := NewRailGeometry(p, 0.01, 0.01, 0)
	if err != nil {
		t.Fatal(err)
	}
	m := NewContactModel(p, g, DefaultContactConfig())

	// At d=2 the rail pair has shifted 0.02 to the right; a robot centered
	// at y=0 is now 0.02 left of center and presses the left flange.
	left, right := m.Evaluate(2, 0, 0)
	if right.Total() != 0 {
		t.Errorf("right should be free on right-shifted rail, got %g", right.Total())
	}
	if math.Abs(left.Penetration-0.01) > 1e-12 {
		t.Errorf("left penetration: got %g, want 0.01", left.Penetration)
	}
}
