// Package grid builds the one-dimensional finite-volume discretization of a
// crustal column.
//
// Coordinates are elevations: zero at the surface and negative downward.
// Index 0 is the deepest edge or cell, the last index is at the surface.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/crustheat/internal/config"
	"github.com/san-kum/crustheat/internal/storage"
)

// MaxCells bounds the number of cells Build will generate.
const MaxCells = 10_000_000

// relTol absorbs round-off when accumulated widths land on the target depth.
const relTol = 1e-12

var ErrInvalidParameter = errors.New("grid: invalid parameter")

// Grid is immutable once built. Slices are shared with callers and must not
// be modified.
type Grid struct {
	N     int
	Depth float64

	Edges          []float64 // n+1 edge elevations, Edges[0] = -Depth, Edges[N] = 0
	Centers        []float64 // n cell-center elevations
	Width          []float64 // n cell widths
	StabilityWidth []float64 // n+1 widths used by the stability bound
	EdgeInterp     []float64 // n+1 interpolation weights, NaN at both ends
	EdgeGradient   []float64 // n+1 inverse center spacings, NaN at both ends
}

// Build grows cells from the surface downward, starting at surfaceWidth and
// multiplying each width by growth up to maxWidth, until depth is reached.
// The edges are then rescaled so the column is exactly depth deep.
func Build(depth, surfaceWidth, growth, maxWidth float64) (*Grid, error) {
	ze, err := edges(depth, surfaceWidth, growth, maxWidth)
	if err != nil {
		return nil, err
	}

	n := len(ze) - 1
	g := &Grid{
		N:              n,
		Depth:          depth,
		Edges:          ze,
		Centers:        make([]float64, n),
		Width:          make([]float64, n),
		StabilityWidth: make([]float64, n+1),
		EdgeInterp:     make([]float64, n+1),
		EdgeGradient:   make([]float64, n+1),
	}

	for i := 0; i < n; i++ {
		g.Centers[i] = ze[i+1]/2 + ze[i]/2
		g.Width[i] = ze[i+1] - ze[i]
	}

	// boundary edges see only their single neighbor cell
	g.StabilityWidth[0] = g.Width[0]
	for i := 1; i < n; i++ {
		g.StabilityWidth[i] = g.Width[i]
	}
	g.StabilityWidth[n] = g.Width[n-1]

	g.EdgeInterp[0], g.EdgeInterp[n] = math.NaN(), math.NaN()
	g.EdgeGradient[0], g.EdgeGradient[n] = math.NaN(), math.NaN()
	for i := 1; i < n; i++ {
		g.EdgeInterp[i] = (ze[i] - g.Centers[i-1]) / (g.Centers[i] - g.Centers[i-1])
		g.EdgeGradient[i] = 1 / (g.Centers[i] - g.Centers[i-1])
	}

	return g, nil
}

func edges(depth, w0, growth, maxWidth float64) ([]float64, error) {
	switch {
	case !(depth > 0):
		return nil, fmt.Errorf("%w: depth must be positive, got %g", ErrInvalidParameter, depth)
	case !(w0 > 0):
		return nil, fmt.Errorf("%w: surface cell width must be positive, got %g", ErrInvalidParameter, w0)
	case !(growth > 0):
		return nil, fmt.Errorf("%w: growth factor must be positive, got %g", ErrInvalidParameter, growth)
	case !(maxWidth > 0):
		return nil, fmt.Errorf("%w: maximum cell width must be positive, got %g", ErrInvalidParameter, maxWidth)
	}
	if growth < 1 && w0/(1-growth) <= depth {
		return nil, fmt.Errorf("%w: cells shrinking by %g from %g never reach depth %g",
			ErrInvalidParameter, growth, w0, depth)
	}

	limit := maxWidth
	if growth <= 1 {
		limit = math.Min(w0, maxWidth)
	}
	if (depth-w0)/limit > MaxCells {
		return nil, fmt.Errorf("%w: more than %d cells needed", ErrInvalidParameter, MaxCells)
	}

	// surface-down distances first
	ze := []float64{0, w0}
	w := w0
	target := depth * (1 - relTol)
	for ze[len(ze)-1] < target {
		w = math.Min(w*growth, maxWidth)
		ze = append(ze, ze[len(ze)-1]+w)
		if len(ze)-1 > MaxCells {
			return nil, fmt.Errorf("%w: more than %d cells needed", ErrInvalidParameter, MaxCells)
		}
	}

	n := len(ze)
	f := depth / ze[n-1]
	for i := range ze {
		ze[i] *= -f
	}
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		ze[i], ze[j] = ze[j], ze[i]
	}
	ze[0] = -depth
	ze[n-1] = 0
	return ze, nil
}

// FromSettings builds the grid described by depth, delz0, delzfrac and
// delzmax.
func FromSettings(s config.Settings) (*Grid, error) {
	return Build(s.Depth, s.Delz0, s.Delzfrac, s.Delzmax)
}

// CellDepth is the positive depth of the center of cell i.
func (g *Grid) CellDepth(i int) float64 {
	return -g.Centers[i]
}

// EdgeDepth is the positive depth of edge i.
func (g *Grid) EdgeDepth(i int) float64 {
	return -g.Edges[i]
}

// Save writes every grid array through w.
func (g *Grid) Save(w storage.ArrayWriter) error {
	arrays := []struct {
		name string
		v    []float64
	}{
		{"zc", g.Centers},
		{"ze", g.Edges},
		{"delz", g.Width},
		{"delze", g.StabilityWidth},
		{"vefac", g.EdgeInterp},
		{"gefac", g.EdgeGradient},
	}
	for _, a := range arrays {
		if err := w.WriteArray(a.name, a.v); err != nil {
			return err
		}
	}
	return nil
}
