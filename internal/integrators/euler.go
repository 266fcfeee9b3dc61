package integrators

import "github.com/san-kum/crustheat/internal/sim"

type Euler struct {
	dx sim.State
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys sim.System, t float64, x sim.State, dt float64) error {
	if len(e.dx) != len(x) {
		e.dx = make(sim.State, len(x))
	}
	if err := sys.Derivative(t, x, e.dx); err != nil {
		return err
	}
	for i := range x {
		x[i] += dt * e.dx[i]
	}
	return nil
}
