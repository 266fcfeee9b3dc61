package sim

import (
	"context"
	"fmt"
	"math"
)

// landTol is the fraction of a step below which the remaining distance to a
// snapshot is absorbed into the current step.
const landTol = 1e-9

type Solver struct {
	integrator Integrator
}

func New(integrator Integrator) *Solver {
	return &Solver{integrator: integrator}
}

// RunFixed advances x in place over duration using steps of dt. Steps are
// shortened to land exactly on snapshot times and the final time.
func (s *Solver) RunFixed(ctx context.Context, sys System, x State, duration, dt float64, nsnap int) (*Result, error) {
	if err := validate(duration, dt, nsnap); err != nil {
		return nil, err
	}
	if dt <= 0 || math.IsNaN(dt) {
		return nil, fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, dt)
	}
	return s.run(ctx, sys, x, duration, nsnap, func() (float64, error) { return dt, nil })
}

// RunAdaptive advances x in place over duration, taking each step from the
// system's StepHint. A hint below minStep aborts the solve.
func (s *Solver) RunAdaptive(ctx context.Context, sys System, x State, duration, minStep float64, nsnap int) (*Result, error) {
	if err := validate(duration, minStep, nsnap); err != nil {
		return nil, err
	}
	if minStep < 0 || math.IsNaN(minStep) {
		return nil, fmt.Errorf("%w: minimum step must be non-negative, got %g", ErrInvalidConfig, minStep)
	}
	return s.run(ctx, sys, x, duration, nsnap, func() (float64, error) {
		dt := sys.StepHint()
		if math.IsNaN(dt) || dt <= 0 || dt < minStep {
			return 0, fmt.Errorf("%w: hint %g, minimum %g", ErrStepTooSmall, dt, minStep)
		}
		return dt, nil
	})
}

func (s *Solver) run(ctx context.Context, sys System, x State, duration float64, nsnap int, next func() (float64, error)) (*Result, error) {
	hooks, _ := sys.(Hooks)
	snaps := SnapshotTimes(duration, nsnap)
	result := &Result{SnapTimes: make([]float64, 0, len(snaps))}

	if hooks != nil {
		if err := hooks.BeforeSolve(); err != nil {
			return nil, fmt.Errorf("before solve: %w", err)
		}
	}

	t := 0.0
	snap := 0
	emit := func() error {
		result.SnapTimes = append(result.SnapTimes, t)
		if hooks != nil {
			if err := hooks.AfterSnap(snap, t, x); err != nil {
				return &SimulationError{Step: result.Steps, Time: t, Wrapped: err}
			}
		}
		snap++
		return nil
	}

	if snap < len(snaps) && snaps[snap] == 0 {
		if err := emit(); err != nil {
			return result, err
		}
	}

	for t < duration {
		select {
		case <-ctx.Done():
			result.Time = t
			return result, ctx.Err()
		default:
		}

		dt, err := next()
		if err != nil {
			result.Time = t
			return result, &SimulationError{Step: result.Steps, Time: t, Wrapped: err}
		}

		target := duration
		if snap < len(snaps) {
			target = snaps[snap]
		}
		landed := false
		if t+dt >= target-landTol*dt {
			dt = target - t
			landed = true
		}

		if err := s.integrator.Step(sys, t, x, dt); err != nil {
			result.Time = t
			return result, &SimulationError{Step: result.Steps, Time: t, Wrapped: err}
		}
		if landed {
			t = target
		} else {
			t += dt
		}
		result.Steps++
		result.Time = t

		if !x.IsValid() {
			return result, &SimulationError{Step: result.Steps, Time: t, Wrapped: ErrUnstable}
		}

		if hooks != nil {
			if err := hooks.AfterStep(t, x); err != nil {
				return result, &SimulationError{Step: result.Steps, Time: t, Wrapped: err}
			}
		}

		if landed && snap < len(snaps) {
			if err := emit(); err != nil {
				return result, err
			}
		}
	}

	if hooks != nil {
		if err := hooks.AfterSolve(); err != nil {
			return result, fmt.Errorf("after solve: %w", err)
		}
	}
	return result, nil
}

// SnapshotTimes returns nsnap evenly spaced times from 0 to duration. A
// single snapshot is taken at the final time only.
func SnapshotTimes(duration float64, nsnap int) []float64 {
	switch {
	case nsnap <= 0:
		return nil
	case nsnap == 1:
		return []float64{duration}
	}
	ts := make([]float64, nsnap)
	for j := range ts {
		ts[j] = float64(j) * duration / float64(nsnap-1)
	}
	ts[nsnap-1] = duration
	return ts
}

func validate(duration, step float64, nsnap int) error {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidConfig, duration)
	}
	if math.IsInf(step, 0) {
		return fmt.Errorf("%w: step must be finite", ErrInvalidConfig)
	}
	if nsnap < 0 {
		return fmt.Errorf("%w: snapshot count must be non-negative, got %d", ErrInvalidConfig, nsnap)
	}
	return nil
}
