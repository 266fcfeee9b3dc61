package integrators

import "github.com/san-kum/crustheat/internal/sim"

// Trapz is the explicit trapezoid rule (Heun's method): an Euler predictor
// followed by averaging the slopes at both ends of the step.
type Trapz struct {
	k1, k2  sim.State
	scratch sim.State
}

func NewTrapz() *Trapz {
	return &Trapz{}
}

func (h *Trapz) ensureScratch(n int) {
	if len(h.k1) != n {
		h.k1 = make(sim.State, n)
		h.k2 = make(sim.State, n)
		h.scratch = make(sim.State, n)
	}
}

func (h *Trapz) Step(sys sim.System, t float64, x sim.State, dt float64) error {
	n := len(x)
	h.ensureScratch(n)

	if err := sys.Derivative(t, x, h.k1); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		h.scratch[i] = x[i] + dt*h.k1[i]
	}
	if err := sys.Derivative(t+dt, h.scratch, h.k2); err != nil {
		return err
	}

	dt2 := dt / 2
	for i := 0; i < n; i++ {
		x[i] += dt2 * (h.k1[i] + h.k2[i])
	}
	return nil
}
