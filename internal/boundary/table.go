package boundary

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/san-kum/crustheat/internal/storage"
)

var ErrBadTable = errors.New("boundary: malformed surface temperature table")

const (
	TableCountFile = "n.txt"
	TableTimeFile  = "time"
)

// Table is a read-only time series of surface temperatures with strictly
// increasing times.
type Table struct {
	times []float64
	temps []float64
}

func NewTable(times, temps []float64) (*Table, error) {
	if len(times) == 0 || len(times) != len(temps) {
		return nil, fmt.Errorf("%w: %d times and %d temperatures", ErrBadTable, len(times), len(temps))
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return nil, fmt.Errorf("%w: time %g at index %d does not increase", ErrBadTable, times[i], i)
		}
	}
	t := &Table{
		times: append([]float64(nil), times...),
		temps: append([]float64(nil), temps...),
	}
	return t, nil
}

// LoadTable reads the count file, the time samples and the temperature
// samples named name from dir.
func LoadTable(dir, name string) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: no temperature file named", ErrBadTable)
	}
	n, err := storage.ReadCount(filepath.Join(dir, TableCountFile))
	if err != nil {
		return nil, err
	}
	times, err := storage.ReadArrayN(filepath.Join(dir, TableTimeFile), n)
	if err != nil {
		return nil, err
	}
	temps, err := storage.ReadArrayN(filepath.Join(dir, name), n)
	if err != nil {
		return nil, err
	}
	return NewTable(times, temps)
}

func (t *Table) Len() int { return len(t.times) }

// At interpolates linearly, holding the first and last samples outside the
// tabulated range.
func (t *Table) At(x float64) float64 {
	n := len(t.times)
	if x <= t.times[0] {
		return t.temps[0]
	}
	if x >= t.times[n-1] {
		return t.temps[n-1]
	}

	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if t.times[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	return t.temps[lo] + (x-t.times[lo])*(t.temps[hi]-t.temps[lo])/(t.times[hi]-t.times[lo])
}
