package heat

import "github.com/san-kum/crustheat/internal/config"

// Medium supplies the material properties of the column. Depths are
// positive downward in meters.
type Medium interface {
	Conductivity(depth float64) float64 // W/m K
	Density(depth float64) float64      // kg/m^3
	SpecificHeat(depth float64) float64 // J/kg K
	GeothermalFlux(t float64) float64   // W/m^2, entering at the bottom
}

// Uniform is a homogeneous medium with a constant geothermal flux.
type Uniform struct {
	K    float64
	Rho  float64
	C    float64
	Qgeo float64
}

func UniformFromSettings(s config.Settings) Uniform {
	return Uniform{K: s.K0, Rho: s.Rho0, C: s.C0, Qgeo: s.Qgeo0}
}

func (u Uniform) Conductivity(float64) float64   { return u.K }
func (u Uniform) Density(float64) float64        { return u.Rho }
func (u Uniform) SpecificHeat(float64) float64   { return u.C }
func (u Uniform) GeothermalFlux(float64) float64 { return u.Qgeo }
