package impact

import (
	"fmt"

	"github.com/san-kum/crustheat/internal/boundary"
	"github.com/san-kum/crustheat/internal/config"
	"github.com/san-kum/crustheat/internal/grid"
	"github.com/san-kum/crustheat/internal/heat"
	"github.com/san-kum/crustheat/internal/storage"
)

const (
	DepthFactor      = 6.0   // domain depth in layer depths
	TimeFactor       = 12.0  // integration time in layer diffusion times
	LayerCells       = 240   // cells across the layer
	BelowTemperature = 220.0 // K
	MaxCellWidth     = 1e9

	DefaultTableDir = "atmospheric-temperature/reformatted"
	DefaultTable    = "1bar100km"
)

// Scenario couples a hot layer with a surface condition. Table is only used
// by boundary.ModeInterpolated and may be shared between scenarios.
type Scenario struct {
	Layer Layer
	Mode  boundary.Mode
	Table *boundary.Table

	DepthFactor float64
	TimeFactor  float64
	LayerCells  int
}

func NewScenario(layer Layer, mode boundary.Mode, table *boundary.Table) Scenario {
	return Scenario{
		Layer:       layer,
		Mode:        mode,
		Table:       table,
		DepthFactor: DepthFactor,
		TimeFactor:  TimeFactor,
		LayerCells:  LayerCells,
	}
}

// Grid is a uniform grid DepthFactor layer depths deep with LayerCells
// cells across the layer.
func (sc Scenario) Grid() (*grid.Grid, error) {
	if sc.Layer.Depth <= 0 || sc.LayerCells < 1 {
		return nil, fmt.Errorf("%w: layer depth %g with %d cells", grid.ErrInvalidParameter, sc.Layer.Depth, sc.LayerCells)
	}
	L := sc.Layer.Depth
	return grid.Build(sc.DepthFactor*L, L/float64(sc.LayerCells), 1, MaxCellWidth)
}

// Surface returns the surface condition of the scenario. The constant mode
// holds the pre-impact temperature.
func (sc Scenario) Surface(s config.Settings) (boundary.Surface, error) {
	if sc.Mode == boundary.ModeConstant {
		return boundary.Constant(sc.Layer.Below), nil
	}
	return boundary.New(sc.Mode, s, sc.Table)
}

func (sc Scenario) Engine(name string, g *grid.Grid, s config.Settings, out storage.ArrayWriter) (*heat.Engine, error) {
	surface, err := sc.Surface(s)
	if err != nil {
		return nil, err
	}
	return heat.New(name, g, s,
		heat.WithSurface(surface),
		heat.WithInitial(sc.Layer),
		heat.WithOutput(out),
	)
}

// Duration is TimeFactor diffusion times of the layer, using the
// diffusivity of the deepest cell.
func (sc Scenario) Duration(e *heat.Engine) float64 {
	kappa := e.Conductivity()[0] / (e.Density()[0] * e.SpecificHeat()[0])
	L := sc.Layer.Depth
	return sc.TimeFactor * L * L / kappa
}
