// Package phase models latent heat with an apparent heat capacity: the
// latent heat is spread uniformly over a narrow temperature window centered
// on the freezing point.
package phase

import (
	"math"

	"github.com/san-kum/crustheat/internal/config"
)

type Model struct {
	LatentHeat    float64 // J/m^3
	FreezingPoint float64 // K
	Window        float64 // K, full width of the transition
}

func FromSettings(s config.Settings) Model {
	return Model{LatentHeat: s.LH, FreezingPoint: s.Tf, Window: s.Ahcw}
}

// Enabled reports whether any latent heat is released.
func (m Model) Enabled() bool {
	return m.LatentHeat > 0 && m.Window > 0
}

// Capacity returns the volumetric heat capacity (J/m^3 K) at temperature T.
func (m Model) Capacity(specificHeat, density, temperature float64) float64 {
	base := specificHeat * density
	if !m.Enabled() {
		return base
	}
	if math.Abs(temperature-m.FreezingPoint) <= m.Window/2 {
		return base + m.LatentHeat/m.Window
	}
	return base
}
