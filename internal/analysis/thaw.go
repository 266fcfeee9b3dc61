package analysis

import (
	"errors"
	"fmt"
)

var ErrNoCrossing = errors.New("analysis: series never crosses the threshold")

// ThawTime is the first time the minimum temperature series tmin reaches
// tf, interpolating linearly between samples.
func ThawTime(t, tmin []float64, tf float64) (float64, error) {
	if len(t) != len(tmin) {
		return 0, fmt.Errorf("%w: %d times, %d temperatures", ErrMismatch, len(t), len(tmin))
	}
	if len(t) == 0 {
		return 0, ErrNoCrossing
	}
	if tmin[0] == tf {
		return t[0], nil
	}
	for i := 1; i < len(t); i++ {
		a, b := tmin[i-1]-tf, tmin[i]-tf
		if b == 0 {
			return t[i], nil
		}
		if (a < 0) != (b < 0) {
			return t[i-1] + (t[i]-t[i-1])*a/(a-b), nil
		}
	}
	return 0, ErrNoCrossing
}
