package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrMismatch = errors.New("analysis: mismatched lengths")

// StepResponse is the temperature at depth d and time t of a half-space
// initially at zero whose surface is held at step from t=0.
func StepResponse(d, t, diffusivity, step float64) float64 {
	if t <= 0 {
		if d == 0 {
			return step
		}
		return 0
	}
	return step * math.Erfc(d/(2*math.Sqrt(diffusivity*t)))
}

// MaxError is the largest absolute difference between temps and exact
// evaluated at depths.
func MaxError(depths, temps []float64, exact func(d float64) float64) (float64, error) {
	if len(depths) != len(temps) {
		return 0, fmt.Errorf("%w: %d depths, %d temperatures", ErrMismatch, len(depths), len(temps))
	}
	if len(depths) == 0 {
		return 0, nil
	}
	want := make([]float64, len(depths))
	for i, d := range depths {
		want[i] = exact(d)
	}
	return floats.Distance(temps, want, math.Inf(1)), nil
}

// Level is one grid of a refinement study. Order is the observed order of
// accuracy relative to the previous level and NaN for the first.
type Level struct {
	Width float64
	Error float64
	Order float64
}

func Orders(widths, errs []float64) ([]Level, error) {
	if len(widths) != len(errs) {
		return nil, fmt.Errorf("%w: %d widths, %d errors", ErrMismatch, len(widths), len(errs))
	}
	levels := make([]Level, len(widths))
	for i := range widths {
		levels[i] = Level{Width: widths[i], Error: errs[i], Order: math.NaN()}
		if i == 0 {
			continue
		}
		ratio := widths[i-1] / widths[i]
		if ratio == 1 || errs[i] <= 0 || errs[i-1] <= 0 {
			continue
		}
		levels[i].Order = math.Log(errs[i-1]/errs[i]) / math.Log(ratio)
	}
	return levels, nil
}
