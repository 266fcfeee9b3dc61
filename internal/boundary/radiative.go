package boundary

import (
	"fmt"
	"math"
)

// StefanBoltzmann is the Stefan-Boltzmann constant in SI units.
const StefanBoltzmann = 5.67e-8

// DefaultInsolation is the absorbed flux of the reference scenario (W/m^2).
const DefaultInsolation = 114.0

const (
	// MaxIterations bounds the Newton iteration of Radiative.
	MaxIterations = 100
	// Tolerance is the relative change between iterates accepted as converged.
	Tolerance = 1e-9
)

// Radiative balances conduction from the surface cell against thermal
// emission to space offset by absorbed insolation:
//
//	k (Tcell - Ts) / h = sigma Ts^4 - Insolation
type Radiative struct {
	Insolation float64 // W/m^2
}

func NewRadiative(insolation float64) Radiative {
	return Radiative{Insolation: insolation}
}

func (r Radiative) Temperature(_ float64, c Cell) (float64, error) {
	return r.Solve(c.Temperature, c.Conductivity, c.HalfWidth)
}

// Solve runs Newton-Raphson starting from the cell temperature.
func (r Radiative) Solve(tcell, k, h float64) (float64, error) {
	return r.SolveFrom(tcell, tcell, k, h)
}

// SolveFrom runs Newton-Raphson from guess. It fails with ErrNotConverged
// when the iterate leaves the physical range or the relative change is still
// above Tolerance after MaxIterations.
func (r Radiative) SolveFrom(guess, tcell, k, h float64) (float64, error) {
	ts := guess
	for i := 0; i < MaxIterations; i++ {
		f := h*(StefanBoltzmann*ts*ts*ts*ts-r.Insolation) + k*ts - k*tcell
		df := 4*h*StefanBoltzmann*ts*ts*ts + k
		next := ts - f/df
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= 0 {
			return 0, fmt.Errorf("%w: iterate %g from cell temperature %g", ErrNotConverged, next, tcell)
		}
		if math.Abs(next-ts)/math.Abs(next) <= Tolerance {
			return next, nil
		}
		ts = next
	}
	return 0, fmt.Errorf("%w after %d iterations from cell temperature %g", ErrNotConverged, MaxIterations, tcell)
}

// Residual is the imbalance of the surface energy budget at ts, in W/m^2.
func (r Radiative) Residual(ts, tcell, k, h float64) float64 {
	return k*(tcell-ts)/h - (StefanBoltzmann*ts*ts*ts*ts - r.Insolation)
}

// Equilibrium is the surface temperature with no conductive flux.
func (r Radiative) Equilibrium() float64 {
	return math.Pow(r.Insolation/StefanBoltzmann, 0.25)
}
