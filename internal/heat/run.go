package heat

import (
	"context"

	"github.com/san-kum/crustheat/internal/ctxlog"
	"github.com/san-kum/crustheat/internal/integrators"
	"github.com/san-kum/crustheat/internal/sim"
)

// MinStepFraction bounds the adaptive step from below as a fraction of the
// integration time.
const MinStepFraction = 1e-12

// Solve integrates the engine adaptively for duration with the integrator
// named by the method setting and returns the final temperatures.
func (e *Engine) Solve(ctx context.Context, duration float64) (sim.State, *sim.Result, error) {
	integ, err := integrators.New(e.settings.Method)
	if err != nil {
		return nil, nil, err
	}
	e.useContextLogger(ctx)
	x := e.Temperature()
	res, err := sim.New(integ).RunAdaptive(ctx, e, x, duration, MinStepFraction*duration, e.settings.Nsnap)
	return x, res, err
}

// SolveFixed integrates with a constant step dt.
func (e *Engine) SolveFixed(ctx context.Context, duration, dt float64) (sim.State, *sim.Result, error) {
	integ, err := integrators.New(e.settings.Method)
	if err != nil {
		return nil, nil, err
	}
	e.useContextLogger(ctx)
	x := e.Temperature()
	res, err := sim.New(integ).RunFixed(ctx, e, x, duration, dt, e.settings.Nsnap)
	return x, res, err
}

// useContextLogger adopts the logger carried by ctx unless one was given
// with WithLogger.
func (e *Engine) useContextLogger(ctx context.Context) {
	if !e.explicitLogger {
		e.logger = ctxlog.FromContext(ctx)
	}
}
