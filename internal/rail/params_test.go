package rail

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/railsim/internal/dynamo"
)

func TestDefaultParamsValidate(t *testing.T) {
	p, err := DefaultParams().Validate()
	if err != nil {
		t.Fatalf("default params should validate: %v", err)
	}

	if p.TotalMass() != 227.0+1361.0 {
		t.Errorf("total mass: got %g", p.TotalMass())
	}

	wantWeight := p.TotalMass() * Gravity
	if math.Abs(p.Weight()-wantWeight) > 1e-9 {
		t.Errorf("weight: got %g, want %g", p.Weight(), wantWeight)
	}
}

func TestDerivedInertia(t *testing.T) {
	p := DefaultParams()
	want := p.TotalMass() * p.WheelBase * p.WheelBase / 12.0
	if math.Abs(p.MomentOfInertia-want) > 1e-9 {
		t.Errorf("inertia: got %g, want %g", p.MomentOfInertia, want)
	}

	// Validate fills in a zeroed inertia but keeps an explicit one.
	p.MomentOfInertia = 0
	v, err := p.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v.MomentOfInertia-want) > 1e-9 {
		t.Errorf("derived inertia: got %g, want %g", v.MomentOfInertia, want)
	}

	p.MomentOfInertia = 500
	v, err = p.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if v.MomentOfInertia != 500 {
		t.Errorf("explicit inertia overwritten: got %g", v.MomentOfInertia)
	}
}

func TestValidateRejectsBadParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero robot mass", func(p *Params) { p.RobotMass = 0 }},
		{"negative pallet mass", func(p *Params) { p.PalletMass = -1 }},
		{"zero max speed", func(p *Params) { p.MaxSpeed = 0 }},
		{"zero wheel base", func(p *Params) { p.WheelBase = 0 }},
		{"zero flange height", func(p *Params) { p.FlangeHeight = 0 }},
		{"negative guide wheel span", func(p *Params) { p.GuideWheelSpan = -0.5 }},
		{"span outside flanges", func(p *Params) { p.GuideWheelSpan = p.FlangeSeparation + 0.01 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			_, err := p.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}
