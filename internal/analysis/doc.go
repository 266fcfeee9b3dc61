// Package analysis measures the accuracy of computed temperature profiles.
//
// The grid-refinement study integrates a column whose surface steps from zero
// to one at t=0. Far from the base the exact response is
//
//	T(d, t) = erfc(d / (2*sqrt(kappa*t)))
//
// so each grid's error is measured against [StepResponse] and the observed
// order of accuracy follows from successive refinements:
//
//	levels, err := analysis.Orders(widths, errs)
//	for _, l := range levels {
//	    fmt.Printf("%g %g %g\n", l.Width, l.Error, l.Order)
//	}
package analysis
