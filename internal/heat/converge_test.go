package heat

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/san-kum/crustheat/internal/storage"
)

func TestRefinementWidths(t *testing.T) {
	widths, err := DefaultRefinement.Widths()
	if err != nil {
		t.Fatal(err)
	}
	if widths[0] != 0.025 {
		t.Errorf("first width %v, want 0.025", widths[0])
	}
	for i := 1; i < len(widths); i++ {
		if math.Abs(widths[i]-0.75*widths[i-1]) > 1e-15 {
			t.Errorf("width %d = %v, not 0.75 of %v", i, widths[i], widths[i-1])
		}
	}
	if last := widths[len(widths)-1]; last <= 0.0005 || last*0.75 > 0.0005 {
		t.Errorf("last width %v does not stop at 0.0005", last)
	}

	if _, err := (Refinement{Start: 1, Stop: 0.1, Factor: 1}).Widths(); err == nil {
		t.Error("expected error for non-shrinking factor")
	}
}

func TestConverge(t *testing.T) {
	dir := t.TempDir()
	s := ConvergenceSettings()
	s.Depth = 1
	s.Tint = 0.01

	widths, err := Converge(context.Background(), s, Refinement{Start: 0.1, Stop: 0.03, Factor: 0.5}, storage.NewDir(dir))
	if err != nil {
		t.Fatalf("Converge: %v", err)
	}
	if len(widths) != 2 {
		t.Fatalf("expected 2 grids, got %v", widths)
	}

	delz, err := storage.ReadArray(filepath.Join(dir, "delz"))
	if err != nil {
		t.Fatal(err)
	}
	if len(delz) != 2 || delz[1] != 0.05 {
		t.Errorf("delz = %v", delz)
	}

	for i, n := range []int{10, 20} {
		zc, err := storage.ReadArray(filepath.Join(dir, []string{"0_zc", "1_zc"}[i]))
		if err != nil {
			t.Fatal(err)
		}
		if len(zc) != n {
			t.Errorf("grid %d has %d cells, want %d", i, len(zc), n)
		}
	}

	// The surface has warmed the top cell but not the bottom one.
	final, err := storage.ReadArray(filepath.Join(dir, "1_T_1"))
	if err != nil {
		t.Fatal(err)
	}
	top, bottom := final[len(final)-1], final[0]
	if !(top > 0.3 && top < 1) {
		t.Errorf("top cell temperature %v, want between 0.3 and 1", top)
	}
	if bottom > 1e-6 {
		t.Errorf("bottom cell temperature %v, want ~0", bottom)
	}
}
