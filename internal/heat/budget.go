package heat

import (
	"github.com/san-kum/crustheat/internal/metrics"
	"github.com/san-kum/crustheat/internal/sim"
)

// Balance is the heat budget of a solve in J/m^2: the change in column heat
// content and the net energy that entered through the boundaries, the time
// integral of q[0]-q[n].
type Balance struct {
	Stored   float64
	Supplied float64
}

// Residual is the part of the stored heat not accounted for by the
// boundary fluxes.
func (b Balance) Residual() float64 {
	return b.Stored - b.Supplied
}

func (e *Engine) startBudget() {
	e.content = metrics.NewHeatContent(e.grid.Width)
	e.content.Observe(e.cap, e.temp0)
	e.supplied, e.lastNet, e.lastT = 0, 0, 0
	// A surface failing here fails the first derivative evaluation too.
	if _, qs, err := e.SurfaceFlux(0, e.temp0); err == nil {
		e.lastNet = e.medium.GeothermalFlux(0) - qs
	}
}

// observeBudget integrates the boundary fluxes with the trapezoid rule
// between steps.
func (e *Engine) observeBudget(t float64, x sim.State, qs float64) {
	net := e.medium.GeothermalFlux(t) - qs
	e.supplied += 0.5 * (net + e.lastNet) * (t - e.lastT)
	e.lastNet, e.lastT = net, t
	e.content.Observe(e.cap, x)
}

// Balance returns the heat budget accumulated so far.
func (e *Engine) Balance() Balance {
	if e.content == nil {
		return Balance{}
	}
	return Balance{Stored: e.content.Value(), Supplied: e.supplied}
}
