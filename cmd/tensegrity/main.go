package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/tensegrity/internal/config"
	"github.com/san-kum/tensegrity/internal/loader"
	"github.com/san-kum/tensegrity/internal/metrics"
	"github.com/san-kum/tensegrity/internal/solver"
	"github.com/san-kum/tensegrity/internal/store"
	"github.com/san-kum/tensegrity/internal/structure"
	"github.com/san-kum/tensegrity/internal/tui"
	"github.com/san-kum/tensegrity/internal/viz"
)

var (
	dataDir    string
	dim        int
	epsilon    float64
	tolerance  float64
	maxIter    int
	configFile string
	preset     string
	// Actuation parameters
	connection string
	delta      float64
	steps      int
	// Render size
	width  int
	height int
	// Plot column selection
	column string
	// Export destination
	output string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tensegrity",
		Short: "static equilibrium lab for bar-and-string structures",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tensegrity", "data directory")

	solveCmd := &cobra.Command{
		Use:   "solve [file|preset]",
		Short: "solve a structure to static equilibrium",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	addSolverFlags(solveCmd)

	actuateCmd := &cobra.Command{
		Use:   "actuate [file|preset]",
		Short: "step a connection's rest length and record each equilibrium",
		Args:  cobra.ExactArgs(1),
		RunE:  runActuate,
	}
	addSolverFlags(actuateCmd)
	actuateCmd.Flags().StringVar(&connection, "conn", "", "named connection to actuate (required)")
	actuateCmd.Flags().Float64Var(&delta, "delta", -0.05, "rest length change per step")
	actuateCmd.Flags().IntVar(&steps, "steps", 10, "number of actuation steps")
	actuateCmd.MarkFlagRequired("conn")

	interactiveCmd := &cobra.Command{
		Use:   "interactive [file|preset]",
		Short: "actuate connections interactively in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runInteractive,
	}
	addSolverFlags(interactiveCmd)

	renderCmd := &cobra.Command{
		Use:   "render [file|preset]",
		Short: "draw a structure as loaded, without solving",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}
	renderCmd.Flags().IntVar(&width, "width", 60, "canvas width in cells")
	renderCmd.Flags().IntVar(&height, "height", 20, "canvas height in cells")

	validateCmd := &cobra.Command{
		Use:   "validate [file|preset]",
		Short: "check a structure description without solving",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot recorded series from a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "single column to plot (default: all force columns)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&output, "output", "", "output file (default: stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run's equilibria as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&output, "output", "", "output file (default: stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in structures and solver presets",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(solveCmd, actuateCmd, interactiveCmd, renderCmd, validateCmd,
		listCmd, plotCmd, exportJSONCmd, exportCSVCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSolverFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&dim, "dim", config.DefaultDim, "working dimension (2 or 3)")
	cmd.Flags().Float64Var(&epsilon, "epsilon", config.DefaultEpsilon, "allowed residual force per free axis")
	cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "bar rigidity tolerance")
	cmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIterations, "inner iteration cap")
	cmd.Flags().StringVar(&configFile, "config", "", "solver config file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "solver config preset")
}

// loadStructure treats the argument as a file path first, then as a
// built-in preset name.
func loadStructure(arg string) (*structure.Structure, error) {
	if _, err := os.Stat(arg); err == nil {
		return loader.Load(arg)
	}
	if _, ok := loader.Presets[arg]; ok {
		return loader.LoadPreset(arg)
	}
	return nil, fmt.Errorf("no such file or preset: %s (presets: %v)", arg, loader.ListPresets())
}

// solverConfig resolves precedence: preset, then config file, then any
// explicitly set flags.
func solverConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dim") {
		cfg.Dim = dim
	}
	if cmd.Flags().Changed("epsilon") {
		cfg.Epsilon = epsilon
	}
	if cmd.Flags().Changed("tol") {
		cfg.Tolerance = tolerance
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.MaxIterations = maxIter
	}

	return cfg, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	st, err := loadStructure(args[0])
	if err != nil {
		return err
	}

	cfg, err := solverConfig(cmd)
	if err != nil {
		return err
	}

	slv, err := solver.New(st, cfg.Solver())
	if err != nil {
		return err
	}

	fmt.Printf("solving %s...\n", args[0])
	start := time.Now()

	res, err := slv.Solve()
	if err != nil {
		return err
	}

	fmt.Printf("converged in %v (%d iterations, %d evaluations)\n\n",
		time.Since(start), res.Iterations, res.Evaluations)
	fmt.Print(viz.Render(st, 60, 20))
	fmt.Println()
	fmt.Print(viz.ForceTable(st))

	fmt.Println("\nmetrics:")
	printMetrics(metrics.Collect(st))

	return nil
}

func runActuate(cmd *cobra.Command, args []string) error {
	st, err := loadStructure(args[0])
	if err != nil {
		return err
	}
	if _, ok := st.Connection(connection); !ok {
		return fmt.Errorf("no named connection %q in %s", connection, args[0])
	}

	cfg, err := solverConfig(cmd)
	if err != nil {
		return err
	}

	slv, err := solver.New(st, cfg.Solver())
	if err != nil {
		return err
	}

	db := store.New(dataDir)
	if err := db.Init(); err != nil {
		return err
	}

	fmt.Printf("actuating %s on %s: %d steps of %+.4f\n", connection, args[0], steps, delta)
	start := time.Now()

	if _, err := slv.Solve(); err != nil {
		return fmt.Errorf("initial solve: %w", err)
	}
	recorded := []store.Step{store.Capture(st, cfg.Dim, 0, 0)}

	total := 0.0
	for i := 1; i <= steps; i++ {
		if err := st.AdjustRestLength(connection, delta); err != nil {
			return err
		}
		if _, err := slv.Solve(); err != nil {
			// The last equilibrium stands; report how far we got.
			st.AdjustRestLength(connection, -delta)
			fmt.Printf("stopped after %d steps: %v\n", i-1, err)
			break
		}
		total += delta
		recorded = append(recorded, store.Capture(st, cfg.Dim, i, total))
	}

	meta := store.RunMetadata{
		Source:     args[0],
		Dim:        cfg.Dim,
		Epsilon:    cfg.Epsilon,
		Tolerance:  cfg.Tolerance,
		Connection: connection,
		Delta:      delta,
		Metrics:    metrics.Collect(st),
	}
	runID, err := db.Save(st, meta, recorded)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("equilibria: %d\n", len(recorded))
	fmt.Println("\nfinal metrics:")
	printMetrics(meta.Metrics)

	return nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	st, err := loadStructure(args[0])
	if err != nil {
		return err
	}

	cfg, err := solverConfig(cmd)
	if err != nil {
		return err
	}

	slv, err := solver.New(st, cfg.Solver())
	if err != nil {
		return err
	}
	if _, err := slv.Solve(); err != nil {
		return fmt.Errorf("initial solve: %w", err)
	}

	return tui.Run(st, slv, args[0])
}

func runRender(cmd *cobra.Command, args []string) error {
	st, err := loadStructure(args[0])
	if err != nil {
		return err
	}

	fmt.Print(viz.Render(st, width, height))
	fmt.Println()
	fmt.Println(viz.Legend())
	fmt.Println()
	fmt.Print(viz.ForceTable(st))

	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	st, err := loadStructure(args[0])
	if err != nil {
		return err
	}

	bars, strs := 0, 0
	for _, c := range st.Connections {
		if c.Kind() == structure.Bar {
			bars++
		} else {
			strs++
		}
	}

	fmt.Printf("%s: ok\n\n", args[0])

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "nodes\t%d\n", len(st.Nodes))
	fmt.Fprintf(w, "bars\t%d\n", bars)
	fmt.Fprintf(w, "strings\t%d\n", strs)
	fmt.Fprintf(w, "pinned nodes\t%d\n", len(st.Pins))
	fmt.Fprintf(w, "controls\t%d\n", len(st.Controls))
	w.Flush()

	if named := st.Named(); len(named) > 0 {
		fmt.Println("\nactuatable connections:")
		for _, c := range named {
			fmt.Printf("  %s (%s, rest %.4f)\n", c.Name, c.Kind(), c.RestLength)
		}
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	db := store.New(dataDir)
	runs, err := db.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tTIME\tCONN\tDELTA\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%+.4f\t%d\n",
			run.ID,
			run.Source,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Connection,
			run.Delta,
			run.Steps,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	db := store.New(dataDir)

	meta, err := db.Load(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("source: %s\n", meta.Source)
	fmt.Printf("actuated: %s by %+.4f per step\n\n", meta.Connection, meta.Delta)

	columns := []string{column}
	if column == "" {
		all, err := db.Columns(runID)
		if err != nil {
			return err
		}
		columns = columns[:0]
		for _, col := range all {
			if len(col) > 2 && col[:2] == "f:" {
				columns = append(columns, col)
			}
		}
		if len(columns) > 6 {
			columns = columns[:6]
		}
	}

	for _, col := range columns {
		data, err := db.LoadSeries(runID, col)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption(col+" vs step"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	db := store.New(dataDir)
	if output == "" {
		return db.ExportJSON(args[0], os.Stdout)
	}

	file, err := os.Create(output)
	if err != nil {
		return err
	}
	defer file.Close()
	return db.ExportJSON(args[0], file)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	db := store.New(dataDir)
	if output == "" {
		return db.ExportCSV(args[0], os.Stdout)
	}

	file, err := os.Create(output)
	if err != nil {
		return err
	}
	defer file.Close()
	return db.ExportCSV(args[0], file)
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("structures:")
	for _, name := range loader.ListPresets() {
		fmt.Printf("  %s\n", name)
	}

	fmt.Println("\nsolver configs:")
	names := config.ListPresets()
	sort.Strings(names)
	for _, name := range names {
		cfg := config.GetPreset(name)
		fmt.Printf("  %-10s dim=%d epsilon=%g tol=%g max-iter=%d\n",
			name, cfg.Dim, cfg.Epsilon, cfg.Tolerance, cfg.MaxIterations)
	}

	return nil
}

func printMetrics(m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %.6f\n", k, m[k])
	}
}
