// Package sim provides the time-stepping primitives that drive a heat model.
//
// The package defines the interfaces between a discretized model and the
// integrator that advances it:
//
//   - [State]: solution vector, advanced in place
//   - [System]: right-hand side dx/dt = f(t, x) plus a step-size hint
//   - [Hooks]: optional lifecycle callbacks around solves, snapshots and steps
//   - [Integrator]: one explicit step of a numerical method
//   - [Solver]: the fixed-step and adaptive-step outer loops
//
// # Example
//
//	eng, _ := heat.New("0", g, settings)
//	solver := sim.New(integrators.NewTrapz())
//	x := eng.Temperature()
//	res, err := solver.RunAdaptive(ctx, eng, x, duration, 1e-12*duration, 5)
//
// # Thread Safety
//
// A Solver holds its integrator's scratch buffers and is NOT safe for
// concurrent use. Parallel sweeps create one Solver per trial.
package sim
