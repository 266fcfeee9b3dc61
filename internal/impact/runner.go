package impact

import (
	"context"
	"fmt"

	"github.com/san-kum/crustheat/internal/boundary"
	"github.com/san-kum/crustheat/internal/config"
	"github.com/san-kum/crustheat/internal/ctxlog"
	"github.com/san-kum/crustheat/internal/storage"
	"github.com/san-kum/crustheat/internal/sweep"
)

// Swept parameter names.
const (
	ParamDepth       = "deplayer"
	ParamMode        = "Tsmode"
	ParamTemperature = "Tlayer"
)

// Params returns the impact-layer sweep: ten log-spaced layer depths from 1
// to 500 m, the three surface modes and five layer temperatures.
func Params() ([]sweep.Param, error) {
	plan, err := sweep.Preset("impact-layer")
	if err != nil {
		return nil, err
	}
	return plan.Params()
}

// Runner integrates one Scenario per trial.
type Runner struct {
	Base  config.Settings
	Table *boundary.Table
	Below float64

	DepthFactor float64
	TimeFactor  float64
	LayerCells  int

	out *storage.Dir
}

func NewRunner(base config.Settings, dir string, table *boundary.Table) *Runner {
	return &Runner{
		Base:        base,
		Table:       table,
		Below:       BelowTemperature,
		DepthFactor: DepthFactor,
		TimeFactor:  TimeFactor,
		LayerCells:  LayerCells,
		out:         storage.NewDir(dir),
	}
}

// Scenario builds the scenario of a trial.
func (r *Runner) Scenario(trial sweep.Trial) (Scenario, error) {
	var v [3]float64
	for i, name := range []string{ParamDepth, ParamMode, ParamTemperature} {
		val, ok := trial.Value(name)
		if !ok {
			return Scenario{}, fmt.Errorf("impact: trial %d has no %s", trial.Index, name)
		}
		v[i] = val
	}
	mode, err := boundary.ModeFromCode(v[1])
	if err != nil {
		return Scenario{}, err
	}
	sc := NewScenario(Layer{Depth: v[0], Temperature: v[2], Below: r.Below}, mode, r.Table)
	sc.DepthFactor = r.DepthFactor
	sc.TimeFactor = r.TimeFactor
	sc.LayerCells = r.LayerCells
	return sc, nil
}

func (r *Runner) Run(ctx context.Context, trial sweep.Trial) error {
	sc, err := r.Scenario(trial)
	if err != nil {
		return err
	}
	g, err := sc.Grid()
	if err != nil {
		return err
	}
	if err := r.out.WithPrefix(trial.Name()).WriteArray("zc", g.Centers); err != nil {
		return err
	}

	s := r.Base.Clone()
	eng, err := sc.Engine(trial.Name(), g, s, r.out)
	if err != nil {
		return err
	}
	duration := sc.Duration(eng)
	_, res, err := eng.Solve(ctx, duration)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("impact trial finished",
		"mode", sc.Mode, "depth", sc.Layer.Depth, "steps", res.Steps, "duration", duration)
	return nil
}
