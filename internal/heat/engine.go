package heat

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/crustheat/internal/boundary"
	"github.com/san-kum/crustheat/internal/config"
	"github.com/san-kum/crustheat/internal/grid"
	"github.com/san-kum/crustheat/internal/metrics"
	"github.com/san-kum/crustheat/internal/phase"
	"github.com/san-kum/crustheat/internal/sim"
	"github.com/san-kum/crustheat/internal/storage"
)

var (
	ErrInvalidMedium  = errors.New("heat: non-positive material property")
	ErrAlreadySolved  = errors.New("heat: engine has already been integrated")
	ErrInvalidInitial = errors.New("heat: invalid initial condition")
)

type stage int

const (
	constructed stage = iota
	integrating
	finalized
)

// Engine is the finite-volume discretization of the heat equation on a
// grid. It implements sim.System and sim.Hooks. An Engine is owned by a
// single solve.
type Engine struct {
	name     string
	grid     *grid.Grid
	settings config.Settings
	medium   Medium
	surface  boundary.Surface
	phase    phase.Model
	initial  Initializer
	out      storage.ArrayWriter

	rho     []float64
	c       []float64
	k       []float64
	baseCap []float64
	cap     []float64
	temp0   []float64
	dTdz    []float64
	q       []float64
	scratch []float64

	dtmax float64
	stage stage

	trackers map[string]*metrics.Series
	tsnap    []float64

	// heat budget of the current solve
	content  *metrics.HeatContent
	supplied float64
	lastNet  float64
	lastT    float64

	logger         *slog.Logger
	explicitLogger bool
}

type Option func(*Engine)

func WithMedium(m Medium) Option { return func(e *Engine) { e.medium = m } }

func WithSurface(s boundary.Surface) Option { return func(e *Engine) { e.surface = s } }

func WithInitial(init Initializer) Option { return func(e *Engine) { e.initial = init } }

// WithOutput directs every enabled output field to w as "<name>_<field>".
func WithOutput(w storage.ArrayWriter) Option { return func(e *Engine) { e.out = w } }

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger, e.explicitLogger = l, true }
}

// New builds an engine for g. Unless overridden by options, the medium is
// Uniform from the settings, the surface is the one named by the settings
// and the initial condition is a Geotherm anchored at Tsa.
func New(name string, g *grid.Grid, s config.Settings, opts ...Option) (*Engine, error) {
	if g == nil || g.N < 1 {
		return nil, fmt.Errorf("heat: %w: empty grid", grid.ErrInvalidParameter)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		name:     name,
		grid:     g,
		settings: s,
		phase:    phase.FromSettings(s),
		out:      storage.Discard{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.medium == nil {
		e.medium = UniformFromSettings(s)
	}
	if e.surface == nil {
		surf, err := boundary.FromSettings(s)
		if err != nil {
			return nil, err
		}
		e.surface = surf
	}
	if e.initial == nil {
		e.initial = Geotherm{Anchor: s.Tsa}
	}

	if err := e.initFields(); err != nil {
		return nil, err
	}

	e.temp0 = make([]float64, g.N)
	if err := e.initial.Initialize(g, e.medium, e.surface, e.temp0); err != nil {
		return nil, fmt.Errorf("heat: initial condition: %w", err)
	}
	if !sim.State(e.temp0).IsValid() {
		return nil, fmt.Errorf("%w: non-finite initial temperature (surface %q)", ErrInvalidInitial, s.Surface)
	}
	for i, T := range e.temp0 {
		e.cap[i] = e.phase.Capacity(e.c[i], e.rho[i], T)
	}

	e.dtmax = e.stabilityBound()
	e.trackers = e.newTrackers()
	return e, nil
}

func (e *Engine) initFields() error {
	n := e.grid.N
	e.rho = make([]float64, n)
	e.c = make([]float64, n)
	e.baseCap = make([]float64, n)
	e.cap = make([]float64, n)
	e.k = make([]float64, n+1)
	e.dTdz = make([]float64, n+1)
	e.q = make([]float64, n+1)
	e.scratch = make([]float64, n)

	for i := 0; i < n; i++ {
		d := e.grid.CellDepth(i)
		e.rho[i] = e.medium.Density(d)
		e.c[i] = e.medium.SpecificHeat(d)
		e.baseCap[i] = e.rho[i] * e.c[i]
		if !(e.baseCap[i] > 0) || math.IsInf(e.baseCap[i], 0) {
			return fmt.Errorf("%w: capacity %g at depth %g", ErrInvalidMedium, e.baseCap[i], d)
		}
	}
	for i := 0; i <= n; i++ {
		d := e.grid.EdgeDepth(i)
		e.k[i] = e.medium.Conductivity(d)
		if !(e.k[i] > 0) || math.IsInf(e.k[i], 0) {
			return fmt.Errorf("%w: conductivity %g at depth %g", ErrInvalidMedium, e.k[i], d)
		}
	}
	return nil
}

// stabilityBound is the largest explicit step that keeps every edge stable,
// using the larger base capacity on either side of the edge.
func (e *Engine) stabilityBound() float64 {
	n := e.grid.N
	dtmax := math.Inf(1)
	for i := 0; i <= n; i++ {
		var cp float64
		switch i {
		case 0:
			cp = e.baseCap[0]
		case n:
			cp = e.baseCap[n-1]
		default:
			cp = math.Max(e.baseCap[i], e.baseCap[i-1])
		}
		w := e.grid.StabilityWidth[i]
		if dt := w * w / (2 * e.k[i] / cp); dt < dtmax {
			dtmax = dt
		}
	}
	return dtmax
}

func (e *Engine) surfaceCell(T []float64) boundary.Cell {
	n := e.grid.N
	return boundary.Cell{
		Temperature:  T[n-1],
		Conductivity: e.k[n],
		HalfWidth:    e.grid.Width[n-1] / 2,
	}
}

// Derivative evaluates dT/dt for every cell. It updates the edge gradients
// and fluxes and, with phase change enabled, the cell capacities.
func (e *Engine) Derivative(t float64, T, dTdt sim.State) error {
	n := e.grid.N

	e.dTdz[0] = -e.medium.GeothermalFlux(t) / e.k[0]
	e.q[0] = -e.dTdz[0] * e.k[0]
	for i := 1; i < n; i++ {
		e.dTdz[i] = e.grid.EdgeGradient[i] * (T[i] - T[i-1])
		e.q[i] = -e.dTdz[i] * e.k[i]
	}

	cell := e.surfaceCell(T)
	ts, err := e.surface.Temperature(t, cell)
	if err != nil {
		return err
	}
	e.dTdz[n] = (ts - T[n-1]) / cell.HalfWidth
	e.q[n] = -e.dTdz[n] * e.k[n]

	if e.phase.Enabled() {
		for i := 0; i < n; i++ {
			e.cap[i] = e.phase.Capacity(e.c[i], e.rho[i], T[i])
		}
	}
	for i := 0; i < n; i++ {
		dTdt[i] = (e.q[i] - e.q[i+1]) / e.cap[i] / e.grid.Width[i]
	}
	return nil
}

// StepHint is dtfac times the stability bound.
func (e *Engine) StepHint() float64 {
	return e.settings.Dtfac * e.dtmax
}

// SurfaceFlux is the heat flux through the surface edge for the temperatures
// T at time t, positive upward.
func (e *Engine) SurfaceFlux(t float64, T []float64) (ts, qs float64, err error) {
	cell := e.surfaceCell(T)
	ts, err = e.surface.Temperature(t, cell)
	if err != nil {
		return 0, 0, err
	}
	return ts, -e.k[e.grid.N] * (ts - cell.Temperature) / cell.HalfWidth, nil
}

func (e *Engine) Name() string              { return e.name }
func (e *Engine) Grid() *grid.Grid          { return e.grid }
func (e *Engine) Settings() config.Settings { return e.settings }
func (e *Engine) MaxStep() float64          { return e.dtmax }
func (e *Engine) Capacity() []float64       { return e.cap }
func (e *Engine) Conductivity() []float64   { return e.k }
func (e *Engine) Density() []float64        { return e.rho }
func (e *Engine) SpecificHeat() []float64   { return e.c }
func (e *Engine) Gradient() []float64       { return e.dTdz }
func (e *Engine) Flux() []float64           { return e.q }

// Temperature returns a fresh copy of the initial temperatures, suitable as
// the solver's solution buffer.
func (e *Engine) Temperature() sim.State {
	return sim.State(e.temp0).Clone()
}
