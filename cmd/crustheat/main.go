package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/crustheat/internal/analysis"
	"github.com/san-kum/crustheat/internal/boundary"
	"github.com/san-kum/crustheat/internal/config"
	"github.com/san-kum/crustheat/internal/ctxlog"
	"github.com/san-kum/crustheat/internal/export"
	"github.com/san-kum/crustheat/internal/grid"
	"github.com/san-kum/crustheat/internal/heat"
	"github.com/san-kum/crustheat/internal/impact"
	"github.com/san-kum/crustheat/internal/storage"
	"github.com/san-kum/crustheat/internal/sweep"
	"github.com/san-kum/crustheat/internal/tui"
)

const (
	settingsName = "settings.txt"
	planName     = "plan.yaml"
)

var (
	logLevel string
	workers  int
	useTUI   bool
	// sweep
	planFile   string
	presetName string
	// impact
	tableDir  string
	tableName string
	// converge
	refineStart  float64
	refineStop   float64
	refineFactor float64
	// thaw
	thawPoint float64
	// plot
	plotHeight int
	plotWidth  int
	gridFile   string
	svgFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "crustheat",
		Short:         "1-D crustal heat diffusion and parameter sweeps",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := ctxlog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger := ctxlog.New(os.Stderr, level)
			slog.SetDefault(logger)
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run <settings> <outdir>",
		Short: "integrate a single column",
		Args:  cobra.ExactArgs(2),
		RunE:  runSingle,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep <settings> <outdir>",
		Short: "run a settings sweep from a plan file or preset",
		Args:  cobra.ExactArgs(2),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&planFile, "plan", "", "sweep plan (YAML)")
	sweepCmd.Flags().StringVar(&presetName, "preset", "", "built-in plan ("+strings.Join(sweep.Presets(), ", ")+")")
	sweepCmd.MarkFlagsMutuallyExclusive("plan", "preset")
	sweepCmd.MarkFlagsOneRequired("plan", "preset")

	impactCmd := &cobra.Command{
		Use:   "impact <settings> <outdir>",
		Short: "sweep impact-heated surface layers",
		Args:  cobra.ExactArgs(2),
		RunE:  runImpact,
	}
	impactCmd.Flags().StringVar(&tableDir, "table-dir", impact.DefaultTableDir, "directory of surface temperature tables")
	impactCmd.Flags().StringVar(&tableName, "table", impact.DefaultTable, "surface temperature table name")

	for _, c := range []*cobra.Command{sweepCmd, impactCmd} {
		c.Flags().IntVar(&workers, "workers", 0, "concurrent trials (0 = number of CPUs)")
		c.Flags().BoolVar(&useTUI, "tui", false, "show interactive progress")
	}

	convergeCmd := &cobra.Command{
		Use:   "converge <outdir>",
		Short: "integrate a surface step on successively finer grids",
		Args:  cobra.ExactArgs(1),
		RunE:  runConverge,
	}
	convergeCmd.Flags().Float64Var(&refineStart, "start", heat.DefaultRefinement.Start, "coarsest surface cell width")
	convergeCmd.Flags().Float64Var(&refineStop, "stop", heat.DefaultRefinement.Stop, "stop once the width falls to this")
	convergeCmd.Flags().Float64Var(&refineFactor, "factor", heat.DefaultRefinement.Factor, "width ratio between grids")

	gridCmd := &cobra.Command{
		Use:   "grid <settings> <outdir>",
		Short: "build and save the grid of a settings file",
		Args:  cobra.ExactArgs(2),
		RunE:  saveGrid,
	}

	trialsCmd := &cobra.Command{
		Use:   "trials <outdir>",
		Short: "list the trial table of a sweep",
		Args:  cobra.ExactArgs(1),
		RunE:  listTrials,
	}

	runsCmd := &cobra.Command{
		Use:   "runs <basedir>",
		Short: "list runs recorded under a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot <outdir> <name> [field]",
		Short: "plot a tracker series (default Tmax)",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  plotSeries,
	}

	profileCmd := &cobra.Command{
		Use:   "profile <outdir> <name> <snap>",
		Short: "plot a temperature snapshot against depth",
		Args:  cobra.ExactArgs(3),
		RunE:  plotProfile,
	}
	profileCmd.Flags().StringVar(&gridFile, "grid", "", "cell centers file (default <outdir>/<name>_zc or <outdir>/zc)")
	profileCmd.Flags().StringVar(&svgFile, "svg", "", "write an SVG to this file instead of plotting")

	for _, c := range []*cobra.Command{plotCmd, profileCmd} {
		c.Flags().IntVar(&plotHeight, "height", 12, "plot height")
		c.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	}

	exportCmd := &cobra.Command{
		Use:   "export <outdir> <name> [fields...]",
		Short: "export tracker series as JSON",
		Args:  cobra.MinimumNArgs(2),
		RunE:  exportSeries,
	}

	showCmd := &cobra.Command{
		Use:   "show <basedir> <id>",
		Short: "show the record of one run",
		Args:  cobra.ExactArgs(2),
		RunE:  showRun,
	}

	settingsCmd := &cobra.Command{
		Use:   "settings <file>",
		Short: "print every setting of a file, defaults included",
		Args:  cobra.ExactArgs(1),
		RunE:  printSettings,
	}

	thawCmd := &cobra.Command{
		Use:   "thaw <outdir>",
		Short: "find when each trial's minimum temperature reaches the melting point",
		Args:  cobra.ExactArgs(1),
		RunE:  thawTimes,
	}
	thawCmd.Flags().Float64Var(&thawPoint, "tf", 273, "melting temperature (K)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in sweep plans",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, sweepCmd, impactCmd, convergeCmd, gridCmd, trialsCmd, runsCmd, showCmd, settingsCmd, thawCmd, plotCmd, profileCmd, exportCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func loadSettings(path, outdir string) (config.Settings, error) {
	s, err := config.Load(path)
	if err != nil {
		return s, err
	}
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return s, err
	}
	// Keep the settings next to the results they produced.
	return s, config.Save(filepath.Join(outdir, settingsName), s)
}

func runSingle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)
	outdir := args[1]

	s, err := loadSettings(args[0], outdir)
	if err != nil {
		return err
	}
	g, err := grid.FromSettings(s)
	if err != nil {
		return err
	}
	out := storage.NewDir(outdir)
	if s.SaveGrid {
		if err := g.Save(out); err != nil {
			return err
		}
	}

	eng, err := heat.New("heat", g, s, heat.WithOutput(out))
	if err != nil {
		return err
	}

	logger.Info("integrating", "cells", g.N, "duration", s.Duration(), "method", s.Method)
	started := time.Now()
	_, res, err := eng.Solve(ctx, s.Duration())
	meta := storage.Metadata{
		ID:       filepath.Base(outdir),
		Command:  "run",
		Trials:   1,
		Workers:  1,
		Started:  started,
		Finished: time.Now(),
	}
	if err != nil {
		meta.Failures = []storage.Failure{{Trial: 0, Error: err.Error()}}
	} else {
		meta.Completed = 1
	}
	if werr := recordRun(outdir, meta); werr != nil {
		return errors.Join(err, werr)
	}
	if err != nil {
		return err
	}

	logger.Info("integration complete", "steps", res.Steps, "snapshots", len(res.SnapTimes), "elapsed", time.Since(started))
	if ts := eng.Tracker("Ts"); ts != nil && ts.Len() > 0 {
		logger.Info("final surface", "Ts", ts.Values()[ts.Len()-1])
	}
	b := eng.Balance()
	logger.Info("heat budget", "stored", b.Stored, "supplied", b.Supplied, "residual", b.Residual())
	return nil
}

// recordRun stores meta as the metadata.json of outdir, which becomes a run
// of the store rooted at its parent directory.
func recordRun(outdir string, meta storage.Metadata) error {
	outdir = filepath.Clean(outdir)
	meta.ID = filepath.Base(outdir)
	st := storage.New(filepath.Dir(outdir))
	if err := st.Init(); err != nil {
		return err
	}
	_, err := st.Save(meta)
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	outdir := args[1]
	s, err := loadSettings(args[0], outdir)
	if err != nil {
		return err
	}

	var plan *sweep.Plan
	if planFile != "" {
		plan, err = sweep.LoadPlan(planFile)
	} else {
		plan, err = sweep.Preset(presetName)
	}
	if err != nil {
		return err
	}
	params, err := plan.Params()
	if err != nil {
		return err
	}

	data, err := plan.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outdir, planName), data, 0644); err != nil {
		return err
	}

	runner, err := sweep.NewSettingsRunner(s, outdir, params)
	if err != nil {
		return err
	}
	return drive(cmd, plan.Name, outdir, params, runner.Run)
}

func runImpact(cmd *cobra.Command, args []string) error {
	outdir := args[1]
	s, err := loadSettings(args[0], outdir)
	if err != nil {
		return err
	}
	params, err := impact.Params()
	if err != nil {
		return err
	}

	table, err := boundary.LoadTable(tableDir, tableName)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		// Only the interpolated surface trials need the table; they fail
		// individually without it.
		ctxlog.FromContext(cmd.Context()).Warn("surface table not found", "dir", tableDir, "table", tableName)
	}

	runner := impact.NewRunner(s, outdir, table)
	return drive(cmd, "impact-layer", outdir, params, runner.Run)
}

// drive runs fn over the product of params, records metadata.json in outdir
// and fails when any trial failed.
func drive(cmd *cobra.Command, name, outdir string, params []sweep.Param, fn sweep.RunFunc) error {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)

	d := &sweep.Driver{Name: name, Workers: workers, Dir: outdir, Logger: logger}

	var (
		report *sweep.Report
		err    error
	)
	if useTUI {
		logFile, ferr := os.Create(filepath.Join(outdir, "sweep.log"))
		if ferr != nil {
			return ferr
		}
		defer logFile.Close()
		level, _ := ctxlog.ParseLevel(logLevel)
		d.Logger = ctxlog.New(logFile, level)

		report, err = tui.Run(ctx, name, trialCount(params), func(ctx context.Context, progress func(sweep.Event)) (*sweep.Report, error) {
			d.Progress = progress
			return d.Run(ctx, params, fn)
		})
	} else {
		report, err = d.Run(ctx, params, fn)
	}

	if report != nil {
		if werr := recordRun(outdir, report.Metadata(filepath.Base(outdir), cmd.Name())); werr != nil {
			return errors.Join(err, werr)
		}
		logger.Info("sweep finished", "trials", report.Trials, "completed", report.Completed,
			"failed", report.Failed(), "elapsed", report.Finished.Sub(report.Started))
	}
	if err != nil {
		return err
	}
	if report.Failed() > 0 {
		return fmt.Errorf("%d of %d trials failed", report.Failed(), report.Trials)
	}
	return nil
}

func trialCount(params []sweep.Param) int {
	n := 1
	for _, p := range params {
		n *= len(p.Values)
	}
	return n
}

func runConverge(cmd *cobra.Command, args []string) error {
	outdir := args[0]
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return err
	}
	s := heat.ConvergenceSettings()
	if err := config.Save(filepath.Join(outdir, settingsName), s); err != nil {
		return err
	}
	r := heat.Refinement{Start: refineStart, Stop: refineStop, Factor: refineFactor}
	widths, err := heat.Converge(cmd.Context(), s, r, storage.NewDir(outdir))
	if err != nil {
		return err
	}

	kappa := s.K0 / (s.Rho0 * s.C0)
	exact := func(d float64) float64 { return analysis.StepResponse(d, s.Duration(), kappa, s.Tsb-s.Tsa) }
	final := strconv.Itoa(s.Nsnap - 1)
	errs := make([]float64, len(widths))
	for i := range widths {
		name := strconv.Itoa(i)
		depths, temps, err := readProfile(outdir, name, final, filepath.Join(outdir, name+"_zc"))
		if err != nil {
			return err
		}
		if errs[i], err = analysis.MaxError(depths, temps, exact); err != nil {
			return err
		}
	}
	levels, err := analysis.Orders(widths, errs)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GRID\tH\tMAX ERROR\tORDER")
	for i, l := range levels {
		order := "-"
		if !math.IsNaN(l.Order) {
			order = fmt.Sprintf("%.2f", l.Order)
		}
		fmt.Fprintf(w, "%d\t%.4g\t%.3e\t%s\n", i, l.Width, l.Error, order)
	}
	return w.Flush()
}

// readProfile reads the temperature snapshot "<name>_T_<snap>" and the cell
// centers in zcPath, returning positive depths.
func readProfile(outdir, name, snap, zcPath string) ([]float64, []float64, error) {
	temps, err := storage.ReadArray(filepath.Join(outdir, name+"_T_"+snap))
	if err != nil {
		return nil, nil, err
	}
	zc, err := storage.ReadArray(zcPath)
	if err != nil {
		return nil, nil, err
	}
	if len(zc) != len(temps) {
		return nil, nil, fmt.Errorf("%s has %d cells, snapshot has %d", zcPath, len(zc), len(temps))
	}
	depths := make([]float64, len(zc))
	for i, z := range zc {
		depths[i] = -z
	}
	return depths, temps, nil
}

func plotProfile(cmd *cobra.Command, args []string) error {
	outdir, name, snap := args[0], args[1], args[2]
	zcPath := gridFile
	if zcPath == "" {
		// Sweeps with per-trial grids save them under the trial prefix.
		zcPath = filepath.Join(outdir, name+"_zc")
		if _, err := os.Stat(zcPath); err != nil {
			zcPath = filepath.Join(outdir, "zc")
		}
	}
	depths, temps, err := readProfile(outdir, name, snap, zcPath)
	if err != nil {
		return err
	}

	if svgFile != "" {
		f, err := os.Create(svgFile)
		if err != nil {
			return err
		}
		if err := export.ProfileSVG(f, depths, temps, plotWidth*8, plotHeight*40, "#ff8800"); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	// Surface first.
	surfaceDown := make([]float64, len(temps))
	for i := range temps {
		surfaceDown[i] = temps[len(temps)-1-i]
	}
	caption := fmt.Sprintf("T (%s, snapshot %s) from %.3g m down to %.3g m", name, snap, depths[len(depths)-1], depths[0])
	fmt.Println(asciigraph.Plot(surfaceDown, asciigraph.Height(plotHeight), asciigraph.Width(plotWidth), asciigraph.Caption(caption)))
	return nil
}

func saveGrid(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(args[0], args[1])
	if err != nil {
		return err
	}
	g, err := grid.FromSettings(s)
	if err != nil {
		return err
	}
	if err := g.Save(storage.NewDir(args[1])); err != nil {
		return err
	}
	fmt.Printf("cells: %d\n", g.N)
	fmt.Printf("surface width: %g\n", g.Width[g.N-1])
	fmt.Printf("bottom width: %g\n", g.Width[0])
	return nil
}

func listTrials(cmd *cobra.Command, args []string) error {
	names, rows, err := storage.ReadTrialTable(filepath.Join(args[0], storage.TrialTableName))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TRIAL\t%s\n", strings.ToUpper(strings.Join(names, "\t")))
	for _, row := range rows {
		fmt.Fprintf(w, "%d", row.Index)
		for _, v := range row.Values {
			fmt.Fprintf(w, "\t%g", v)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(args[0])
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMMAND\tPLAN\tSTARTED\tELAPSED\tTRIALS\tFAILED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%d\n",
			run.ID,
			run.Command,
			run.Plan,
			run.Started.Format("2006-01-02 15:04:05"),
			run.Finished.Sub(run.Started).Round(time.Millisecond),
			run.Completed,
			run.Trials,
			len(run.Failures),
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(args[0])
	meta, err := st.Load(args[1])
	if err != nil {
		return err
	}

	fmt.Printf("id: %s\n", meta.ID)
	fmt.Printf("command: %s\n", meta.Command)
	if meta.Plan != "" {
		fmt.Printf("plan: %s\n", meta.Plan)
	}
	fmt.Printf("started: %s\n", meta.Started.Format("2006-01-02 15:04:05"))
	fmt.Printf("elapsed: %s\n", meta.Finished.Sub(meta.Started).Round(time.Millisecond))
	fmt.Printf("workers: %d\n", meta.Workers)
	fmt.Printf("trials: %d completed of %d\n", meta.Completed, meta.Trials)

	if len(meta.Failures) > 0 {
		fmt.Printf("\nfailures:\n")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TRIAL\tERROR")
		for _, f := range meta.Failures {
			fmt.Fprintf(w, "%d\t%s\n", f.Trial, f.Error)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if data, err := os.ReadFile(filepath.Join(args[0], args[1], planName)); err == nil {
		plan, err := sweep.ParsePlan(data)
		if err != nil {
			return err
		}
		fmt.Printf("\nparameters:\n")
		for _, p := range plan.Parameters {
			param, err := p.Param()
			if err != nil {
				return err
			}
			fmt.Printf("  %s: %d values, %g .. %g\n", param.Name, len(param.Values), param.Values[0], param.Values[len(param.Values)-1])
		}
	}
	return nil
}

func printSettings(cmd *cobra.Command, args []string) error {
	s, err := config.Load(args[0])
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, key := range config.Keys() {
		v, err := s.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", key, v)
	}
	return w.Flush()
}

// thawTimes reads the t and Tmin trackers of every trial in outdir, prints
// the thaw time next to the trial parameters and writes them to
// thaw_times.csv. Trials that never thaw get NaN.
func thawTimes(cmd *cobra.Command, args []string) error {
	outdir := args[0]
	names, rows, err := storage.ReadTrialTable(filepath.Join(outdir, storage.TrialTableName))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TRIAL\t%s\tTHAW TIME\n", strings.ToUpper(strings.Join(names, "\t")))
	out := make([]storage.TrialRow, len(rows))
	for i, row := range rows {
		prefix := filepath.Join(outdir, strconv.Itoa(row.Index))
		t, err := storage.ReadArray(prefix + "_t")
		if err != nil {
			return err
		}
		tmin, err := storage.ReadArray(prefix + "_Tmin")
		if err != nil {
			return err
		}

		thaw, err := analysis.ThawTime(t, tmin, thawPoint)
		cell := fmt.Sprintf("%g", thaw)
		switch {
		case errors.Is(err, analysis.ErrNoCrossing):
			thaw, cell = math.NaN(), "-"
		case err != nil:
			return fmt.Errorf("trial %d: %w", row.Index, err)
		}
		out[i] = storage.TrialRow{Index: row.Index, Values: append(append([]float64(nil), row.Values...), thaw)}

		fmt.Fprintf(w, "%d", row.Index)
		for _, v := range row.Values {
			fmt.Fprintf(w, "\t%g", v)
		}
		fmt.Fprintf(w, "\t%s\n", cell)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return storage.WriteTrialTable(filepath.Join(outdir, "thaw_times.csv"), append(names, "thaw_time"), out)
}

func plotSeries(cmd *cobra.Command, args []string) error {
	field := "Tmax"
	if len(args) == 3 {
		field = args[2]
	}
	path := filepath.Join(args[0], args[1]+"_"+field)
	data, err := storage.ReadArray(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("no data in %s", path)
	}

	caption := fmt.Sprintf("%s (%s, %d samples)", field, args[1], len(data))
	fmt.Println(asciigraph.Plot(data, asciigraph.Height(plotHeight), asciigraph.Width(plotWidth), asciigraph.Caption(caption)))
	return nil
}

func exportSeries(cmd *cobra.Command, args []string) error {
	fields := args[2:]
	if len(fields) == 0 {
		fields = []string{"Tmax", "Tmin", "Ts", "qs", "t"}
	}
	data, err := storage.LoadSeries(args[0], args[1], fields)
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, data)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTRIALS\tDESCRIPTION")
	for _, name := range sweep.Presets() {
		plan, err := sweep.Preset(name)
		if err != nil {
			return err
		}
		params, err := plan.Params()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, trialCount(params), plan.Description)
	}
	return w.Flush()
}
