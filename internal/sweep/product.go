package sweep

import (
	"errors"
	"fmt"
)

var ErrEmptyParam = errors.New("sweep: parameter has no values")

// Param is one swept quantity.
type Param struct {
	Name   string
	Values []float64
}

// Trial is one point of the cartesian product.
type Trial struct {
	Index  int
	Names  []string
	Values []float64
}

// Value returns the value of the named parameter.
func (t Trial) Value(name string) (float64, bool) {
	for i, n := range t.Names {
		if n == name {
			return t.Values[i], true
		}
	}
	return 0, false
}

// Name is the output prefix of the trial.
func (t Trial) Name() string {
	return fmt.Sprintf("%d", t.Index)
}

// Product enumerates every combination of the parameter values. The last
// parameter varies fastest and indices run from zero without gaps.
func Product(params []Param) ([]Trial, error) {
	if len(params) == 0 {
		return nil, nil
	}
	names := make([]string, len(params))
	total := 1
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyParam, p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("sweep: duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		names[i] = p.Name
		total *= len(p.Values)
	}

	trials := make([]Trial, total)
	idx := make([]int, len(params))
	for t := 0; t < total; t++ {
		values := make([]float64, len(params))
		for i, p := range params {
			values[i] = p.Values[idx[i]]
		}
		trials[t] = Trial{Index: t, Names: names, Values: values}

		for i := len(params) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(params[i].Values) {
				break
			}
			idx[i] = 0
		}
	}
	return trials, nil
}

func names(params []Param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name
	}
	return out
}
