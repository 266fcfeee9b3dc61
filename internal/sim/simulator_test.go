package sim

import (
	"context"
	"errors"
	"math"
	"testing"
)

type decay struct {
	hint float64

	before, after int
	snaps         []float64
	steps         int
}

func (d *decay) Derivative(t float64, x, dx State) error {
	for i := range x {
		dx[i] = -x[i]
	}
	return nil
}

func (d *decay) StepHint() float64 { return d.hint }

func (d *decay) BeforeSolve() error { d.before++; return nil }
func (d *decay) AfterSnap(snap int, t float64, x State) error {
	d.snaps = append(d.snaps, t)
	return nil
}
func (d *decay) AfterStep(t float64, x State) error { d.steps++; return nil }
func (d *decay) AfterSolve() error                  { d.after++; return nil }

type plainDecay struct{ hint float64 }

func (p plainDecay) Derivative(t float64, x, dx State) error {
	for i := range x {
		dx[i] = -x[i]
	}
	return nil
}

func (p plainDecay) StepHint() float64 { return p.hint }

type euler struct{ dx State }

func (e *euler) Step(sys System, t float64, x State, dt float64) error {
	if len(e.dx) != len(x) {
		e.dx = make(State, len(x))
	}
	if err := sys.Derivative(t, x, e.dx); err != nil {
		return err
	}
	for i := range x {
		x[i] += dt * e.dx[i]
	}
	return nil
}

func TestRunFixed(t *testing.T) {
	sys := &decay{}
	x := State{1.0}

	res, err := New(&euler{}).RunFixed(context.Background(), sys, x, 1.0, 0.001, 0)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Steps != 1000 {
		t.Errorf("expected 1000 steps, got %d", res.Steps)
	}
	if res.Time != 1.0 {
		t.Errorf("expected final time 1, got %v", res.Time)
	}
	if math.Abs(x[0]-math.Exp(-1)) > 1e-3 {
		t.Errorf("expected x ~%.4f, got %.4f", math.Exp(-1), x[0])
	}
	if sys.before != 1 || sys.after != 1 {
		t.Errorf("hooks called before=%d after=%d", sys.before, sys.after)
	}
	if sys.steps != res.Steps {
		t.Errorf("AfterStep called %d times for %d steps", sys.steps, res.Steps)
	}
}

func TestRunFixedLandsOnSnapshots(t *testing.T) {
	sys := &decay{}
	x := State{1.0}

	// 0.3 does not divide the snapshot interval 0.5.
	res, err := New(&euler{}).RunFixed(context.Background(), sys, x, 2.0, 0.3, 5)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := []float64{0, 0.5, 1.0, 1.5, 2.0}
	if len(sys.snaps) != len(want) {
		t.Fatalf("expected %d snapshots, got %v", len(want), sys.snaps)
	}
	for i := range want {
		if math.Abs(sys.snaps[i]-want[i]) > 1e-12 {
			t.Errorf("snapshot %d at %v, want %v", i, sys.snaps[i], want[i])
		}
	}
	if len(res.SnapTimes) != len(want) {
		t.Errorf("result recorded %d snapshot times", len(res.SnapTimes))
	}
}

func TestRunAdaptive(t *testing.T) {
	sys := plainDecay{hint: 0.01}
	x := State{2.0, 4.0}

	res, err := New(&euler{}).RunAdaptive(context.Background(), sys, x, 1.0, 1e-6, 1)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(res.SnapTimes) != 1 || res.SnapTimes[0] != 1.0 {
		t.Errorf("expected single final snapshot, got %v", res.SnapTimes)
	}
	if res.Steps < 100 || res.Steps > 101 {
		t.Errorf("expected ~100 steps, got %d", res.Steps)
	}
	if math.Abs(x[1]/x[0]-2) > 1e-12 {
		t.Errorf("components decayed at different rates: %v", x)
	}
}

func TestRunAdaptiveStepTooSmall(t *testing.T) {
	sys := plainDecay{hint: 1e-9}
	x := State{1.0}

	_, err := New(&euler{}).RunAdaptive(context.Background(), sys, x, 1.0, 1e-6, 0)
	if !errors.Is(err, ErrStepTooSmall) {
		t.Fatalf("expected ErrStepTooSmall, got %v", err)
	}
	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %T", err)
	}
	if simErr.Step != 0 {
		t.Errorf("expected failure at step 0, got %d", simErr.Step)
	}
}

func TestRunUnstable(t *testing.T) {
	sys := plainDecay{}
	x := State{1.0}

	// Explicit Euler on dx/dt = -x diverges for dt > 2.
	_, err := New(&euler{}).RunFixed(context.Background(), sys, x, 1e6, 3.0, 0)
	if !errors.Is(err, ErrUnstable) {
		t.Fatalf("expected ErrUnstable, got %v", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	solver := New(&euler{})

	tests := []struct {
		name     string
		duration float64
		dt       float64
		nsnap    int
	}{
		{"zero dt", 1.0, 0, 0},
		{"negative dt", 1.0, -0.1, 0},
		{"zero duration", 0, 0.1, 0},
		{"negative duration", -1.0, 0.1, 0},
		{"negative snapshots", 1.0, 0.1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := solver.RunFixed(context.Background(), plainDecay{}, State{1}, tt.duration, tt.dt, tt.nsnap)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x := State{1.0}
	res, err := New(&euler{}).RunFixed(ctx, plainDecay{}, x, 1.0, 0.01, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Steps != 0 || x[0] != 1.0 {
		t.Errorf("expected no progress, got %d steps, x=%v", res.Steps, x)
	}
}

type failingHook struct {
	decay
	failAt int
}

func (f *failingHook) AfterStep(t float64, x State) error {
	f.steps++
	if f.steps == f.failAt {
		return errors.New("disk full")
	}
	return nil
}

func TestRunHookError(t *testing.T) {
	sys := &failingHook{failAt: 3}
	_, err := New(&euler{}).RunFixed(context.Background(), sys, State{1}, 1.0, 0.1, 0)
	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %v", err)
	}
	if simErr.Step != 3 {
		t.Errorf("expected failure at step 3, got %d", simErr.Step)
	}
}

func TestSnapshotTimes(t *testing.T) {
	tests := []struct {
		nsnap int
		want  []float64
	}{
		{0, nil},
		{1, []float64{10}},
		{2, []float64{0, 10}},
		{3, []float64{0, 5, 10}},
	}
	for _, tt := range tests {
		got := SnapshotTimes(10, tt.nsnap)
		if len(got) != len(tt.want) {
			t.Errorf("SnapshotTimes(10, %d) = %v, want %v", tt.nsnap, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SnapshotTimes(10, %d)[%d] = %v, want %v", tt.nsnap, i, got[i], tt.want[i])
			}
		}
	}
}
