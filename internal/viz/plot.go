package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/railsim/internal/dynamo"
	"github.com/san-kum/railsim/internal/rail"
)

const (
	plotWidth  = 80
	plotHeight = 12
	maxPoints  = 400
)

// TrajectoryPlot renders the lateral offset and misalignment series of a run
// as stacked terminal graphs. Samples are decimated to fit the plot width.
func TrajectoryPlot(times []float64, states []dynamo.State) string {
	if len(states) == 0 {
		return "(empty trajectory)"
	}

	y := decimate(column(states, rail.IdxY), maxPoints)
	theta := decimate(column(states, rail.IdxTheta), maxPoints)

	var b strings.Builder
	b.WriteString(asciigraph.Plot(scale(y, 1000),
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(fmt.Sprintf("lateral offset y (mm), t=0..%.2fs", times[len(times)-1])),
	))
	b.WriteString("\n\n")
	b.WriteString(asciigraph.Plot(scale(theta, 1000),
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("misalignment theta (mrad)"),
	))
	return b.String()
}

// ForcePlot renders the per-side flange force series, as produced by a run
// or loaded back from a stored one.
func ForcePlot(left, right []float64) string {
	if len(left) == 0 {
		return "(no contact samples)"
	}

	var b strings.Builder
	b.WriteString(asciigraph.Plot(decimate(left, maxPoints),
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("left flange force (N)"),
	))
	b.WriteString("\n\n")
	b.WriteString(asciigraph.Plot(decimate(right, maxPoints),
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("right flange force (N)"),
	))
	return b.String()
}

func column(states []dynamo.State, idx int) []float64 {
	out := make([]float64, len(states))
	for i, st := range states {
		out[i] = st[idx]
	}
	return out
}

func scale(data []float64, factor float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = v * factor
	}
	return out
}

func decimate(data []float64, limit int) []float64 {
	if len(data) <= limit {
		return data
	}
	stride := len(data) / limit
	out := make([]float64, 0, limit)
	for i := 0; i < len(data); i += stride {
		out = append(out, data[i])
	}
	return out
}
