package sim

import (
	"context"
	"sort"
	"sync"

	"github.com/san-kum/railsim/internal/analysis"
	"github.com/san-kum/railsim/internal/integrators"
	"github.com/san-kum/railsim/internal/rail"
)

// SweepEntry is one spacing's outcome in a comparison sweep.
type SweepEntry struct {
	SpacingMM float64           `json:"spacingMM"`
	Verdict   *analysis.Verdict `json:"verdict"`

	Samples  int     `json:"samples"`
	Duration float64 `json:"duration"` // s
	Distance float64 `json:"distance"` // m
}

// RunSweep runs one full simulate+analyze cycle per spacing value, each with
// its own simulator and trajectory buffer, and returns the entries ordered
// by spacing. Runs execute concurrently; they share only the read-only base
// configuration.
func RunSweep(ctx context.Context, params rail.Params, spacingsMM []float64, base Config, thresholds analysis.Thresholds) ([]SweepEntry, error) {
	entries := make([]SweepEntry, len(spacingsMM))
	errs := make([]error, len(spacingsMM))

	var wg sync.WaitGroup
	for i, mm := range spacingsMM {
		wg.Add(1)
		go func(idx int, spacingMM float64) {
			defer wg.Done()

			cfg := base
			cfg.Spacing = spacingMM / 1000.0

			entries[idx], errs[idx] = runOne(ctx, params, cfg, thresholds, spacingMM)
		}(i, mm)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].SpacingMM < entries[j].SpacingMM })
	return entries, nil
}

func runOne(ctx context.Context, params rail.Params, cfg Config, thresholds analysis.Thresholds, spacingMM float64) (SweepEntry, error) {
	s, err := New(params, cfg, integrators.NewRK4())
	if err != nil {
		return SweepEntry{}, err
	}

	res, err := s.Run(ctx)
	if err != nil {
		return SweepEntry{}, err
	}

	verdict, err := analysis.NewAnalyzer(s.Params(), cfg.Spacing, thresholds).
		Analyze(res.Times, res.States, res.Left, res.Right, res.Diverged)
	if err != nil {
		return SweepEntry{}, err
	}

	return SweepEntry{
		SpacingMM: spacingMM,
		Verdict:   verdict,
		Samples:   len(res.Times),
		Duration:  res.Duration(),
		Distance:  res.Distance(),
	}, nil
}
