// Package impact models the cooling of a hot layer emplaced at the surface
// by an impact, under one of several surface boundary conditions.
package impact

import (
	"github.com/san-kum/crustheat/internal/boundary"
	"github.com/san-kum/crustheat/internal/grid"
	"github.com/san-kum/crustheat/internal/heat"
)

// Layer is an initial condition: a uniformly hot layer of the given depth
// over a geotherm that starts at Below at the base of the layer.
type Layer struct {
	Depth       float64 // m
	Temperature float64 // K
	Below       float64 // K, pre-impact surface temperature
}

func (l Layer) Initialize(g *grid.Grid, m heat.Medium, _ boundary.Surface, T []float64) error {
	qgeo := m.GeothermalFlux(0)
	for i := range T {
		d := g.CellDepth(i)
		if d < l.Depth {
			T[i] = l.Temperature
			continue
		}
		T[i] = l.Below + qgeo*(d-l.Depth)/m.Conductivity(d-l.Depth)
	}
	return nil
}
