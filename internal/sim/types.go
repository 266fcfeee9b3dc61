package sim

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is the right-hand side of an ODE system. Derivative writes
// dx/dt into dx, which has the same length as x.
type System interface {
	Derivative(t float64, x, dx State) error
	StepHint() float64
}

// Hooks is implemented by systems that want to observe a solve. Every
// callback receives the live solution buffer and must not keep it.
type Hooks interface {
	BeforeSolve() error
	AfterSnap(snap int, t float64, x State) error
	AfterStep(t float64, x State) error
	AfterSolve() error
}

// Integrator advances x in place from t to t+dt.
type Integrator interface {
	Step(sys System, t float64, x State, dt float64) error
}

type Result struct {
	Steps     int
	Time      float64
	SnapTimes []float64
}
