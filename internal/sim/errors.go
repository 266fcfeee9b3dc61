package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrUnstable indicates the solution diverged (NaN or Inf detected).
	ErrUnstable = errors.New("sim: solution unstable (state diverged)")

	// ErrStepTooSmall indicates the step-size hint fell below the minimum step.
	ErrStepTooSmall = errors.New("sim: adaptive timestep below minimum")

	// ErrInvalidConfig indicates non-positive durations or steps.
	ErrInvalidConfig = errors.New("sim: invalid solver configuration")
)

// SimulationError wraps an error with the step and time at which it occurred.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
