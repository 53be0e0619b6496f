package viz

import (
	"strings"
	"testing"

	"github.com/san-kum/railsim/internal/dynamo"
)

func TestTrajectoryPlot(t *testing.T) {
	times := []float64{0, 0.5, 1.0}
	states := []dynamo.State{
		{0, 0.001, 0, 0, 0, 0},
		{0.5, 0.002, 0.001, 1, 0, 0},
		{1.0, 0.001, 0, 1, 0, 0},
	}

	out := TrajectoryPlot(times, states)
	if !strings.Contains(out, "lateral offset") || !strings.Contains(out, "misalignment") {
		t.Errorf("missing captions:\n%s", out)
	}

	if out := TrajectoryPlot(nil, nil); !strings.Contains(out, "empty") {
		t.Errorf("empty trajectory: %q", out)
	}
}

func TestForcePlot(t *testing.T) {
	left := []float64{0, 100, 0}
	right := []float64{0, 0, 50}

	out := ForcePlot(left, right)
	if !strings.Contains(out, "left flange") || !strings.Contains(out, "right flange") {
		t.Errorf("missing captions:\n%s", out)
	}

	if out := ForcePlot(nil, nil); !strings.Contains(out, "no contact") {
		t.Errorf("empty series: %q", out)
	}
}

func TestDecimate(t *testing.T) {
	data := make([]float64, 1000)
	for i := range data {
		data[i] = float64(i)
	}

	out := decimate(data, 400)
	if len(out) > 500 {
		t.Errorf("decimation left %d points", len(out))
	}
	if out[0] != 0 {
		t.Errorf("first point: got %g", out[0])
	}

	short := []float64{1, 2, 3}
	if got := decimate(short, 400); len(got) != 3 {
		t.Errorf("short input should pass through, got %d points", len(got))
	}
}
