// Package boundary provides the surface temperature strategies of the heat
// model. Every strategy is a pure function of time and of the cell adjacent
// to the surface; none of them keeps per-call state, so one value can be
// shared by concurrent integrations.
package boundary

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/crustheat/internal/config"
)

var (
	ErrNotConverged = errors.New("boundary: surface temperature solve did not converge")
	ErrUnknownMode  = errors.New("boundary: unknown surface mode")
	ErrMissingTable = errors.New("boundary: interpolated surface needs a table")
)

// Cell describes the grid cell touching the surface.
type Cell struct {
	Temperature  float64 // K
	Conductivity float64 // W/m K, at the surface edge
	HalfWidth    float64 // m, distance from the cell center to the surface
}

type Surface interface {
	Temperature(t float64, c Cell) (float64, error)
}

// Constant holds the surface at a fixed temperature.
type Constant float64

func (s Constant) Temperature(float64, Cell) (float64, error) {
	return float64(s), nil
}

// Relaxing moves the surface temperature from From toward To with e-folding
// time Scale: From + (To - From)(1 - exp(-t/Scale)).
type Relaxing struct {
	From, To, Scale float64
}

func (s Relaxing) Temperature(t float64, _ Cell) (float64, error) {
	return s.From + (s.To-s.From)*(1-math.Exp(-t/s.Scale)), nil
}

// Interpolated follows a tabulated time series.
type Interpolated struct {
	Table *Table
}

func (s Interpolated) Temperature(t float64, _ Cell) (float64, error) {
	return s.Table.At(t), nil
}

type Mode int

const (
	ModeConstant Mode = iota
	ModeRadiative
	ModeInterpolated
	ModeRelaxing
)

var modeNames = []string{"constant", "radiative", "interpolated", "relaxing"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
	return modeNames[m]
}

// ParseMode accepts a mode name or its integer code.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	if code, err := strconv.ParseFloat(s, 64); err == nil {
		return ModeFromCode(code)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// ModeFromCode converts a swept numeric parameter into a Mode.
func ModeFromCode(code float64) (Mode, error) {
	if code != math.Trunc(code) || code < 0 || int(code) >= len(modeNames) {
		return 0, fmt.Errorf("%w: code %g", ErrUnknownMode, code)
	}
	return Mode(code), nil
}

// New builds the surface selected by mode from the settings. The table is
// only consulted by ModeInterpolated.
func New(mode Mode, s config.Settings, table *Table) (Surface, error) {
	switch mode {
	case ModeConstant:
		return Constant(s.Tsconst), nil
	case ModeRadiative:
		return NewRadiative(s.Insol), nil
	case ModeInterpolated:
		if table == nil {
			return nil, ErrMissingTable
		}
		return Interpolated{Table: table}, nil
	case ModeRelaxing:
		return Relaxing{From: s.Tsa, To: s.Tsb, Scale: s.Tsc}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownMode, mode)
}

// FromSettings builds the surface named by the settings, loading the
// interpolation table from DirTs/FnTs when needed.
func FromSettings(s config.Settings) (Surface, error) {
	mode, err := ParseMode(s.Surface)
	if err != nil {
		return nil, err
	}
	var table *Table
	if mode == ModeInterpolated {
		if table, err = LoadTable(s.DirTs, s.FnTs); err != nil {
			return nil, err
		}
	}
	return New(mode, s, table)
}
