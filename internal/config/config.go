// Package config holds the flat settings record of a heat integration and
// parses it from line-oriented "key = value" text.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	DefaultDepth    = 1.0
	DefaultDelz0    = 0.01
	DefaultDelzfrac = 1.0
	DefaultDelzmax  = 1.0
	DefaultTint     = 1.0
	DefaultTunit    = 1.0
	DefaultNsnap    = 5
	DefaultNmaxout  = 100
	DefaultDtfac    = 0.9
	DefaultMethod   = "trapz"
	DefaultSurface  = "relaxing"
	DefaultTsconst  = 220.0
	DefaultInsol    = 114.0
	DefaultTf       = 273.15
)

var (
	ErrUnknownSetting = errors.New("config: unknown setting")
	ErrInvalidValue   = errors.New("config: invalid value")
)

// Settings is a plain value: assigning or calling Clone yields an independent
// copy that can be overridden per trial.
type Settings struct {
	// grid
	Depth    float64 // domain depth (m)
	Delz0    float64 // surface cell width (m)
	Delzfrac float64 // growth factor of each deeper cell
	Delzmax  float64 // maximum cell width (m)
	SaveGrid bool

	// integration
	Tint    float64 // duration in units of Tunit
	Tunit   float64 // seconds per time unit
	Nsnap   int
	Nmaxout int // target length of subsampled tracker output
	Dtfac   float64
	Method  string

	// physical parameters
	Rho0  float64 // density (kg/m^3)
	C0    float64 // specific heat (J/kg K)
	K0    float64 // thermal conductivity (W/m K)
	Qgeo0 float64 // geothermal heat flux (W/m^2)
	Tsa   float64
	Tsb   float64
	Tsc   float64
	LH    float64 // latent heat (J/m^3)
	Tf    float64 // freezing point (K)
	Ahcw  float64 // apparent heat capacity window width (K)

	// surface boundary
	Surface string
	Tsconst float64
	Insol   float64 // absorbed flux offset of the radiative balance (W/m^2)
	DirTs   string
	FnTs    string

	Output Output
}

// Output toggles which fields are written and which trackers are recorded.
type Output struct {
	Density            bool // rho, written before solving
	SpecificHeat       bool // c
	Conductivity       bool // k
	Capacity           bool // cap
	Temperature        bool // T, every snapshot
	Gradient           bool // dTdz
	Flux               bool // q
	MaxTemperature     bool // Tmax, every step
	MinTemperature     bool // Tmin
	SurfaceTemperature bool // Ts
	SurfaceFlux        bool // qs
	Time               bool // t
	SnapTimes          bool // tsnap
}

func Default() Settings {
	return Settings{
		Depth:    DefaultDepth,
		Delz0:    DefaultDelz0,
		Delzfrac: DefaultDelzfrac,
		Delzmax:  DefaultDelzmax,
		Tint:     DefaultTint,
		Tunit:    DefaultTunit,
		Nsnap:    DefaultNsnap,
		Nmaxout:  DefaultNmaxout,
		Dtfac:    DefaultDtfac,
		Method:   DefaultMethod,
		Rho0:     1,
		C0:       1,
		K0:       1,
		Qgeo0:    1,
		Tsa:      0,
		Tsb:      1,
		Tsc:      1,
		Tf:       DefaultTf,
		Ahcw:     1,
		Surface:  DefaultSurface,
		Tsconst:  DefaultTsconst,
		Insol:    DefaultInsol,
	}
}

func (s Settings) Clone() Settings {
	return s
}

// Duration is the integration time in seconds.
func (s Settings) Duration() float64 {
	return s.Tint * s.Tunit
}

func (s Settings) Validate() error {
	if s.Dtfac <= 0 || s.Dtfac >= 1 {
		return fmt.Errorf("%w: dtfac must be in (0, 1), got %g", ErrInvalidValue, s.Dtfac)
	}
	if s.Nsnap < 0 {
		return fmt.Errorf("%w: nsnap must not be negative, got %d", ErrInvalidValue, s.Nsnap)
	}
	if s.Nmaxout < 1 {
		return fmt.Errorf("%w: nmaxout must be at least 1, got %d", ErrInvalidValue, s.Nmaxout)
	}
	if s.Tint <= 0 || s.Tunit <= 0 {
		return fmt.Errorf("%w: tint and tunit must be positive", ErrInvalidValue)
	}
	if surface := strings.ToLower(strings.TrimSpace(s.Surface)); (surface == "relaxing" || surface == "3") && !(s.Tsc > 0) {
		return fmt.Errorf("%w: tsc must be positive for the relaxing surface, got %g", ErrInvalidValue, s.Tsc)
	}
	return nil
}

// Load parses the settings file at path over the defaults.
func Load(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path in the format read by Load.
func Save(path string, s Settings) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := s.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
