package boundary

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/crustheat/internal/config"
	"github.com/san-kum/crustheat/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstant(t *testing.T) {
	s := Constant(220)
	for _, tm := range []float64{0, 1, 1e9} {
		v, err := s.Temperature(tm, Cell{Temperature: 900})
		require.NoError(t, err)
		assert.Equal(t, 220.0, v)
	}
}

func TestRelaxing(t *testing.T) {
	s := Relaxing{From: 200, To: 300, Scale: 10}

	v, err := s.Temperature(0, Cell{})
	require.NoError(t, err)
	assert.Equal(t, 200.0, v)

	v, _ = s.Temperature(10, Cell{})
	assert.InDelta(t, 200+100*(1-math.Exp(-1)), v, 1e-12)

	v, _ = s.Temperature(1e6, Cell{})
	assert.InDelta(t, 300, v, 1e-9)
}

func TestRadiativeConverges(t *testing.T) {
	r := NewRadiative(DefaultInsolation)

	for _, tcell := range []float64{100, 150, 220, 300, 400} {
		for _, k := range []float64{0.1, 1, 3, 10} {
			h := 0.005
			ts, err := r.Solve(tcell, k, h)
			require.NoError(t, err, "tcell=%g k=%g", tcell, k)

			flux := StefanBoltzmann*ts*ts*ts*ts - r.Insolation
			resid := r.Residual(ts, tcell, k, h)
			assert.LessOrEqual(t, math.Abs(resid), 1e-6*math.Max(math.Abs(flux), 1), "tcell=%g k=%g", tcell, k)

			// iterating from the fixed point stays there
			again, err := r.SolveFrom(ts, tcell, k, h)
			require.NoError(t, err)
			assert.InDelta(t, ts, again, Tolerance*ts)

			// the surface sits between the cell and radiative equilibrium
			eq := r.Equilibrium()
			assert.True(t, ts >= math.Min(tcell, eq)-1e-6 && ts <= math.Max(tcell, eq)+1e-6,
				"ts=%g outside [%g, %g]", ts, tcell, eq)
		}
	}
}

func TestRadiativeEquilibriumIsFixedPoint(t *testing.T) {
	r := NewRadiative(DefaultInsolation)
	eq := r.Equilibrium()

	ts, err := r.Solve(eq, 2, 0.01)
	require.NoError(t, err)
	assert.InDelta(t, eq, ts, 1e-6)
}

func TestRadiativeFailsOnNonPhysicalInput(t *testing.T) {
	r := NewRadiative(DefaultInsolation)

	_, err := r.Solve(math.NaN(), 1, 0.01)
	assert.ErrorIs(t, err, ErrNotConverged)

	_, err = r.Solve(200, math.Inf(1), 0.01)
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestTableInterpolation(t *testing.T) {
	tab, err := NewTable([]float64{0, 10}, []float64{200, 300})
	require.NoError(t, err)

	assert.Equal(t, 250.0, tab.At(5))
	assert.Equal(t, 200.0, tab.At(-3))
	assert.Equal(t, 200.0, tab.At(0))
	assert.Equal(t, 300.0, tab.At(10))
	assert.Equal(t, 300.0, tab.At(1e12))

	tab, err = NewTable([]float64{0, 1, 3, 7}, []float64{10, 20, 0, 40})
	require.NoError(t, err)
	assert.InDelta(t, 15, tab.At(0.5), 1e-12)
	assert.InDelta(t, 10, tab.At(2), 1e-12)
	assert.InDelta(t, 30, tab.At(6), 1e-12)
	assert.Equal(t, 20.0, tab.At(1))
}

func TestTableRejectsBadInput(t *testing.T) {
	_, err := NewTable(nil, nil)
	assert.ErrorIs(t, err, ErrBadTable)

	_, err = NewTable([]float64{0, 1}, []float64{1})
	assert.ErrorIs(t, err, ErrBadTable)

	_, err = NewTable([]float64{0, 2, 2}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrBadTable)
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TableCountFile), []byte("3\n"), 0644))
	require.NoError(t, storage.WriteArray(filepath.Join(dir, TableTimeFile), []float64{0, 100, 200}))
	require.NoError(t, storage.WriteArray(filepath.Join(dir, "1bar100km"), []float64{400, 300, 220}))

	tab, err := LoadTable(dir, "1bar100km")
	require.NoError(t, err)
	assert.Equal(t, 3, tab.Len())
	assert.Equal(t, 350.0, tab.At(50))

	_, err = LoadTable(dir, "missing")
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"constant", ModeConstant},
		{"Radiative", ModeRadiative},
		{"interpolated", ModeInterpolated},
		{"relaxing", ModeRelaxing},
		{"0", ModeConstant},
		{"1", ModeRadiative},
		{"2", ModeInterpolated},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"sunny", "1.5", "-1", "9"} {
		_, err := ParseMode(bad)
		assert.ErrorIs(t, err, ErrUnknownMode, bad)
	}
	assert.Equal(t, "radiative", ModeRadiative.String())
}

func TestNew(t *testing.T) {
	s := config.Default()
	s.Tsconst = 180

	surf, err := New(ModeConstant, s, nil)
	require.NoError(t, err)
	v, _ := surf.Temperature(5, Cell{})
	assert.Equal(t, 180.0, v)

	_, err = New(ModeInterpolated, s, nil)
	assert.ErrorIs(t, err, ErrMissingTable)

	surf, err = New(ModeRadiative, s, nil)
	require.NoError(t, err)
	assert.Equal(t, s.Insol, surf.(Radiative).Insolation)
}
