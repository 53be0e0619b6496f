package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/railsim/internal/analysis"
	"github.com/san-kum/railsim/internal/rail"
	"github.com/san-kum/railsim/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Timestamp     time.Time          `json:"timestamp"`
	SpacingMM     float64            `json:"spacing_mm"`
	InitialSkewMM float64            `json:"initial_skew_mm"`
	Dt            float64            `json:"dt"`
	Duration      float64            `json:"duration"`
	Distance      float64            `json:"distance"`
	Diverged      bool               `json:"diverged"`
	Reason        string             `json:"reason,omitempty"`
	Metrics       map[string]float64 `json:"metrics"`
	Verdict       *analysis.Verdict  `json:"verdict,omitempty"`
}

var csvHeader = []string{
	"time", "x", "y", "theta", "vx", "vy", "omega",
	"left_force", "left_pen", "right_force", "right_pen",
}

// Save writes one run as a directory: metadata.json plus the full trajectory
// in states.csv. Returns the generated run ID.
func (s *Store) Save(cfg sim.Config, result *sim.Result, verdict *analysis.Verdict) (string, error) {
	runID := fmt.Sprintf("run_%04.0fmm_%d", cfg.Spacing*1000, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:            runID,
		Timestamp:     time.Now(),
		SpacingMM:     cfg.Spacing * 1000,
		InitialSkewMM: 1000 * sim.DefaultWheelBase * cfg.InitialTheta,
		Dt:            cfg.Dt,
		Duration:      result.Duration(),
		Distance:      result.Distance(),
		Diverged:      result.Diverged,
		Reason:        result.Reason,
		Metrics:       result.Metrics,
		Verdict:       verdict,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "states.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return "", err
	}

	for i := range result.States {
		st := result.States[i]
		row := make([]string, 0, len(csvHeader))
		row = append(row, formatF(result.Times[i]))
		for _, val := range st {
			row = append(row, formatF(val))
		}
		row = append(row,
			formatF(result.Left[i].Total()), formatF(result.Left[i].Penetration),
			formatF(result.Right[i].Total()), formatF(result.Right[i].Penetration),
		)
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func formatF(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// Series is a loaded trajectory with the per-side contact columns split back
// out of the CSV.
type Series struct {
	Times      []float64
	States     [][]float64
	LeftForce  []float64
	LeftPen    []float64
	RightForce []float64
	RightPen   []float64
}

func (s *Store) LoadSeries(runID string) (*Series, error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	series := &Series{}
	if len(records) < 2 {
		return series, nil
	}

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) != len(csvHeader) {
			continue
		}

		vals := make([]float64, 0, len(record))
		ok := true
		for _, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vals = append(vals, v)
		}
		if !ok {
			continue
		}

		series.Times = append(series.Times, vals[0])
		series.States = append(series.States, vals[1:1+rail.StateDim])
		series.LeftForce = append(series.LeftForce, vals[7])
		series.LeftPen = append(series.LeftPen, vals[8])
		series.RightForce = append(series.RightForce, vals[9])
		series.RightPen = append(series.RightPen, vals[10])
	}

	return series, nil
}
