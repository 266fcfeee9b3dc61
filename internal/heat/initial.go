package heat

import (
	"github.com/san-kum/crustheat/internal/boundary"
	"github.com/san-kum/crustheat/internal/grid"
)

// Initializer fills the initial cell temperatures.
type Initializer interface {
	Initialize(g *grid.Grid, m Medium, s boundary.Surface, T []float64) error
}

type InitializerFunc func(g *grid.Grid, m Medium, s boundary.Surface, T []float64) error

func (f InitializerFunc) Initialize(g *grid.Grid, m Medium, s boundary.Surface, T []float64) error {
	return f(g, m, s, T)
}

// Geotherm is the steady conductive profile T0 + qgeo*depth/k, where T0 is
// the surface temperature at t=0 evaluated with the surface cell at Anchor.
type Geotherm struct {
	Anchor float64
}

func (gt Geotherm) Initialize(g *grid.Grid, m Medium, s boundary.Surface, T []float64) error {
	k := m.Conductivity(0)
	t0, err := s.Temperature(0, boundary.Cell{
		Temperature:  gt.Anchor,
		Conductivity: k,
		HalfWidth:    g.Width[g.N-1] / 2,
	})
	if err != nil {
		return err
	}
	qgeo := m.GeothermalFlux(0)
	for i := range T {
		T[i] = t0 + qgeo*g.CellDepth(i)/k
	}
	return nil
}
