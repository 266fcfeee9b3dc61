package heat

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/crustheat/internal/metrics"
	"github.com/san-kum/crustheat/internal/sim"
)

// Tracker names, in the order they are written.
var trackerNames = []string{"Tmax", "Tmin", "Ts", "qs", "t"}

func (e *Engine) newTrackers() map[string]*metrics.Series {
	out := e.settings.Output
	enabled := map[string]bool{
		"Tmax": out.MaxTemperature,
		"Tmin": out.MinTemperature,
		"Ts":   out.SurfaceTemperature,
		"qs":   out.SurfaceFlux,
		"t":    out.Time,
	}
	trackers := make(map[string]*metrics.Series)
	for _, name := range trackerNames {
		if enabled[name] {
			trackers[name] = metrics.NewSeries(name)
		}
	}
	return trackers
}

// Tracker returns the named diagnostic series, or nil when it is disabled.
func (e *Engine) Tracker(name string) *metrics.Series {
	return e.trackers[name]
}

func (e *Engine) write(field string, v []float64) error {
	if err := e.out.WriteArray(e.name+"_"+field, v); err != nil {
		return fmt.Errorf("heat: %s: %w", field, err)
	}
	return nil
}

func (e *Engine) BeforeSolve() error {
	if e.stage != constructed {
		return ErrAlreadySolved
	}
	e.stage = integrating

	out := e.settings.Output
	fields := []struct {
		on   bool
		name string
		v    []float64
	}{
		{out.Density, "rho", e.rho},
		{out.SpecificHeat, "c", e.c},
		{out.Conductivity, "k", e.k},
		{out.Capacity, "cap", e.cap},
	}
	for _, f := range fields {
		if f.on {
			if err := e.write(f.name, f.v); err != nil {
				return err
			}
		}
	}
	e.startBudget()
	return nil
}

func (e *Engine) AfterSnap(snap int, t float64, x sim.State) error {
	out := e.settings.Output
	if out.Gradient || out.Flux {
		// Refresh gradients and fluxes for the snapshot state.
		if err := e.Derivative(t, x, e.scratch); err != nil {
			return err
		}
	}

	suffix := "_" + strconv.Itoa(snap)
	if out.Temperature {
		if err := e.write("T"+suffix, x); err != nil {
			return err
		}
	}
	if out.Gradient {
		if err := e.write("dTdz"+suffix, e.dTdz); err != nil {
			return err
		}
	}
	if out.Flux {
		if err := e.write("q"+suffix, e.q); err != nil {
			return err
		}
	}
	if out.SnapTimes {
		e.tsnap = append(e.tsnap, t)
	}
	return nil
}

func (e *Engine) AfterStep(t float64, x sim.State) error {
	if s := e.trackers["Tmax"]; s != nil {
		s.Observe(floats.Max(x))
	}
	if s := e.trackers["Tmin"]; s != nil {
		s.Observe(floats.Min(x))
	}
	ts, qs, err := e.SurfaceFlux(t, x)
	if err != nil {
		return err
	}
	if s := e.trackers["Ts"]; s != nil {
		s.Observe(ts)
	}
	if s := e.trackers["qs"]; s != nil {
		s.Observe(qs)
	}
	e.observeBudget(t, x, qs)
	if s := e.trackers["t"]; s != nil {
		s.Observe(t)
	}
	return nil
}

// AfterSolve writes the trackers, each thinned to about nmaxout samples,
// and the snapshot times.
func (e *Engine) AfterSolve() error {
	e.stage = finalized
	b := e.Balance()
	e.logger.Debug("heat budget", "engine", e.name,
		"stored", b.Stored, "supplied", b.Supplied, "residual", b.Residual())
	for _, name := range trackerNames {
		s := e.trackers[name]
		if s == nil {
			continue
		}
		if err := e.write(name, metrics.Subsample(s.Values(), e.settings.Nmaxout)); err != nil {
			return err
		}
	}
	if e.settings.Output.SnapTimes {
		if err := e.write("tsnap", e.tsnap); err != nil {
			return err
		}
	}
	return nil
}
