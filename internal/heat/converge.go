package heat

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/san-kum/crustheat/internal/config"
	"github.com/san-kum/crustheat/internal/ctxlog"
	"github.com/san-kum/crustheat/internal/grid"
	"github.com/san-kum/crustheat/internal/storage"
)

// Refinement is a sequence of surface cell widths, each Factor times the
// previous, from Start while above Stop.
type Refinement struct {
	Start  float64
	Stop   float64
	Factor float64
}

var DefaultRefinement = Refinement{Start: 0.025, Stop: 0.0005, Factor: 0.75}

func (r Refinement) Widths() ([]float64, error) {
	if !(r.Start > 0) || !(r.Stop > 0) || !(r.Factor > 0 && r.Factor < 1) {
		return nil, fmt.Errorf("%w: refinement %+v", grid.ErrInvalidParameter, r)
	}
	var widths []float64
	for w := r.Start; w > r.Stop; w *= r.Factor {
		widths = append(widths, w)
	}
	return widths, nil
}

// ConvergenceSettings describe a 2 m column at zero temperature whose
// surface steps to one at t=0, with no geothermal flux.
func ConvergenceSettings() config.Settings {
	s := config.Default()
	s.Depth = 2
	s.Output.Temperature = true
	s.Nsnap = 2
	s.Qgeo0 = 0
	s.Tint = 0.02
	s.Tsc = 1e-100
	return s
}

// Converge integrates s once per refinement width with a fixed time step
// shared by every run: dtfac times the stability bound of the finest grid.
// Run i writes its cell centers as "<i>_zc" and its fields under the name
// "<i>"; the widths are written as "delz".
func Converge(ctx context.Context, s config.Settings, r Refinement, out *storage.Dir) ([]float64, error) {
	logger := ctxlog.FromContext(ctx)
	widths, err := r.Widths()
	if err != nil {
		return nil, err
	}
	if len(widths) == 0 {
		return nil, fmt.Errorf("%w: refinement %+v yields no grids", grid.ErrInvalidParameter, r)
	}

	finest := s.Clone()
	finest.Delz0 = widths[len(widths)-1]
	dt, err := stepFor(finest)
	if err != nil {
		return nil, err
	}
	logger.Info("convergence study", "grids", len(widths), "dt", dt)

	for i, w := range widths {
		si := s.Clone()
		si.Delz0 = w
		g, err := grid.FromSettings(si)
		if err != nil {
			return nil, err
		}
		name := strconv.Itoa(i)
		if err := out.WithPrefix(name).WriteArray("zc", g.Centers); err != nil {
			return nil, err
		}
		eng, err := New(name, g, si, WithOutput(out))
		if err != nil {
			return nil, err
		}
		if _, _, err := eng.SolveFixed(ctx, si.Duration(), dt); err != nil {
			return nil, fmt.Errorf("grid %d (h=%g): %w", i, w, err)
		}
		logger.Info("integration complete", "grid", i, "h", w, "cells", g.N)
	}

	if err := out.WriteArray("delz", widths); err != nil {
		return nil, err
	}
	return widths, nil
}

func stepFor(s config.Settings) (float64, error) {
	g, err := grid.FromSettings(s)
	if err != nil {
		return 0, err
	}
	eng, err := New("finest", g, s)
	if err != nil {
		return 0, err
	}
	dt := eng.StepHint()
	if !(dt > 0) || math.IsInf(dt, 0) {
		return 0, fmt.Errorf("heat: invalid step %g for the finest grid", dt)
	}
	return dt, nil
}
