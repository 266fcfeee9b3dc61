package sweep

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrDegenerateRange = errors.New("sweep: single-point range with distinct endpoints")
	ErrInvalidRange    = errors.New("sweep: invalid range")
)

// Linspace returns n evenly spaced values from a to b inclusive.
func Linspace(a, b float64, n int) ([]float64, error) {
	if err := checkRange(a, b, n); err != nil {
		return nil, err
	}
	if n == 1 {
		return []float64{a}, nil
	}
	return floats.Span(make([]float64, n), a, b), nil
}

// Logspace returns n values whose base-10 exponents are evenly spaced from
// a to b inclusive.
func Logspace(a, b float64, n int) ([]float64, error) {
	if err := checkRange(a, b, n); err != nil {
		return nil, err
	}
	lo, hi := math.Pow(10, a), math.Pow(10, b)
	if n == 1 {
		return []float64{lo}, nil
	}
	v := floats.LogSpan(make([]float64, n), lo, hi)
	v[0], v[n-1] = lo, hi
	return v, nil
}

func checkRange(a, b float64, n int) error {
	switch {
	case n < 1:
		return fmt.Errorf("%w: count %d", ErrInvalidRange, n)
	case math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0):
		return fmt.Errorf("%w: endpoints %g, %g", ErrInvalidRange, a, b)
	case n == 1 && a != b:
		return fmt.Errorf("%w: [%g, %g]", ErrDegenerateRange, a, b)
	}
	return nil
}
