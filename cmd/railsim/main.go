package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/railsim/internal/analysis"
	"github.com/san-kum/railsim/internal/config"
	"github.com/san-kum/railsim/internal/dynamo"
	"github.com/san-kum/railsim/internal/integrators"
	"github.com/san-kum/railsim/internal/metrics"
	"github.com/san-kum/railsim/internal/rail"
	"github.com/san-kum/railsim/internal/server"
	"github.com/san-kum/railsim/internal/sim"
	"github.com/san-kum/railsim/internal/storage"
	"github.com/san-kum/railsim/internal/viz"
)

var (
	dataDir    string
	spacingMM  float64
	skewMM     float64
	distance   float64
	duration   float64
	dt         float64
	railAngle  float64
	curvature  float64
	configFile string
	preset     string
	saveRun    bool
	// plot
	withForces bool
	// sweep
	sweepSpacings []float64
	// serve
	addr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "railsim",
		Short: "rail-guided robot stability simulator",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate one traversal and report the stability verdict",
		RunE:  runSimulation,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "simulate a range of flange spacings in parallel",
		RunE:  runSweep,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run's trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch a traversal in the terminal",
		RunE:  runLive,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve runs and simulations over HTTP",
		RunE:  serve,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scenario presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.PresetNames() {
				cfg, _ := config.Preset(name)
				fmt.Printf("%-10s spacing %.0f mm, skew %.0f mm\n", name, cfg.SpacingMM, cfg.InitialSkewMM)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./runs", "run storage directory")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "scenario config file (yaml)")
	rootCmd.PersistentFlags().StringVarP(&preset, "preset", "p", "", "scenario preset name")

	for _, cmd := range []*cobra.Command{runCmd, sweepCmd, liveCmd} {
		cmd.Flags().Float64VarP(&spacingMM, "spacing", "s", 10, "flange spacing (mm)")
		cmd.Flags().Float64Var(&skewMM, "skew", 5, "initial front-to-back skew (mm)")
		cmd.Flags().Float64VarP(&distance, "distance", "d", 10, "run distance (m)")
		cmd.Flags().Float64Var(&duration, "time", 30, "time budget (s)")
		cmd.Flags().Float64Var(&dt, "dt", 0.001, "integration step (s)")
		cmd.Flags().Float64Var(&railAngle, "angle", 0, "constant rail angle (rad)")
		cmd.Flags().Float64Var(&curvature, "curvature", 0, "rail curvature (rad/m)")
	}
	runCmd.Flags().BoolVar(&saveRun, "save", false, "store the trajectory")
	plotCmd.Flags().BoolVar(&withForces, "forces", false, "also plot the per-side flange forces")
	sweepCmd.Flags().Float64SliceVar(&sweepSpacings, "spacings", nil, "spacings to sweep (mm)")
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	rootCmd.AddCommand(runCmd, sweepCmd, listCmd, plotCmd, exportCmd, liveCmd, serveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfig merges preset, config file, and flags. Precedence, lowest to
// highest: defaults, preset, config file, flags the user actually set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p, err := config.Preset(preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("spacing") {
		cfg.SpacingMM = spacingMM
	}
	if cmd.Flags().Changed("skew") {
		cfg.InitialSkewMM = skewMM
	}
	if cmd.Flags().Changed("distance") {
		cfg.MaxDistance = distance
	}
	if cmd.Flags().Changed("time") {
		cfg.MaxDuration = duration
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("angle") {
		cfg.RailAngle = railAngle
	}
	if cmd.Flags().Changed("curvature") {
		cfg.RailCurvature = curvature
	}

	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	params := rail.DefaultParams()
	simCfg := cfg.SimConfig()

	simulator, err := sim.New(params, simCfg, integrators.NewRK4())
	if err != nil {
		return err
	}
	for _, m := range metrics.Defaults() {
		simulator.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := simulator.Run(ctx)
	if err != nil {
		return err
	}

	analyzer := analysis.NewAnalyzer(params, simCfg.Spacing, cfg.Thresholds)
	verdict, err := analyzer.Analyze(result.Times, result.States, result.Left, result.Right, result.Diverged)
	if err != nil {
		return err
	}

	fmt.Println(viz.TrajectoryPlot(result.Times, result.States))
	fmt.Println()
	fmt.Println(viz.VerdictPanel(verdict))

	if result.Diverged {
		fmt.Printf("\nrun diverged: %s\n", result.Reason)
	}

	if saveRun {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(simCfg, result, verdict)
		if err != nil {
			return err
		}
		fmt.Printf("\nsaved as %s\n", runID)
	}

	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	spacings := cfg.SweepSpacingsMM
	if cmd.Flags().Changed("spacings") {
		spacings = sweepSpacings
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	entries, err := sim.RunSweep(ctx, rail.DefaultParams(), spacings, cfg.SimConfig(), cfg.Thresholds)
	if err != nil {
		return err
	}

	fmt.Println(viz.SweepTable(entries))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no stored runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSPACING\tDISTANCE\tDURATION\tSTABLE\tTIMESTAMP")
	for _, run := range runs {
		stable := "-"
		if run.Verdict != nil {
			stable = fmt.Sprintf("%v", run.Verdict.Stable())
		}
		fmt.Fprintf(w, "%s\t%.1f mm\t%.2f m\t%.2f s\t%s\t%s\n",
			run.ID, run.SpacingMM, run.Distance, run.Duration,
			stable, run.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(series.Times) == 0 {
		return fmt.Errorf("run %s has no samples", args[0])
	}

	states := make([]dynamo.State, len(series.States))
	for i, s := range series.States {
		states[i] = dynamo.State(s)
	}

	fmt.Println(viz.TrajectoryPlot(series.Times, states))
	if withForces {
		fmt.Println()
		fmt.Println(viz.ForcePlot(series.LeftForce, series.RightForce))
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	params := rail.DefaultParams()
	simCfg := cfg.SimConfig()

	geom, err := rail.NewRailGeometry(params, simCfg.Spacing, simCfg.RailAngle, simCfg.RailCurvature)
	if err != nil {
		return err
	}
	contact := rail.NewContactModel(params, geom, simCfg.Contact)
	dyn := rail.NewDynamics(params, contact, simCfg.Damping, simCfg.Spacing)

	model := viz.NewLiveModel(params, simCfg, dyn, contact, integrators.NewRK4())
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func serve(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	srv := server.New(st, rail.DefaultParams())
	fmt.Printf("listening on %s\n", addr)
	return srv.ListenAndServe(addr)
}
