package integrators

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/crustheat/internal/sim"
)

var ErrUnknownMethod = errors.New("integrators: unknown method")

var registry = map[string]func() sim.Integrator{
	"euler": func() sim.Integrator { return NewEuler() },
	"trapz": func() sim.Integrator { return NewTrapz() },
	"rk4":   func() sim.Integrator { return NewRK4() },
}

// New returns a fresh integrator for the named method. Integrators keep
// scratch buffers, so each solve gets its own.
func New(method string) (sim.Integrator, error) {
	ctor, ok := registry[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownMethod, method, Methods())
	}
	return ctor(), nil
}

func Methods() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
