package Convection2D

import (
	"fmt"

	"github.com/notargets/gomantle/types"
	"github.com/notargets/gomantle/utils"
)

const SecondsPerMyr = 1.e6 * 365 * 24 * 3600

// PhysicalParams are the dimensional constants of the mantle model, in SI
// units with temperatures in degrees C.
type PhysicalParams struct {
	Kappa float64 // Thermal diffusivity
	Tm    float64 // Mantle temperature, the temperature scale
	Tlab  float64 // Temperature at the base of the lithosphere, held at the surface
	G     float64 // Gravitational acceleration
	Alpha float64 // Thermal expansivity
	HDim  float64 // Box height, the length scale
	Eta   float64 // Viscosity
	Rho   float64 // Reference density
}

func DefaultPhysicalParams() PhysicalParams {
	return PhysicalParams{
		Kappa: 1.e-6,
		Tm:    1650,
		Tlab:  1350,
		G:     9.81,
		Alpha: 3.e-5,
		HDim:  1000.e3,
		Eta:   1.e22,
		Rho:   3400,
	}
}

func (pp PhysicalParams) Validate() (err error) {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"kappa", pp.Kappa}, {"Tm", pp.Tm}, {"g", pp.G}, {"alpha", pp.Alpha},
		{"hdim", pp.HDim}, {"eta", pp.Eta}, {"rho", pp.Rho},
	} {
		if !(v.val > 0) || utils.IsNan(v.val) {
			return fmt.Errorf("%w: physical parameter %s must be positive, have %g",
				types.ErrConfiguration, v.name, v.val)
		}
	}
	return
}

// Rayleigh returns alpha*rho*g*Tm*h^3/(eta*kappa)
func (pp PhysicalParams) Rayleigh() float64 {
	return pp.Alpha * pp.Rho * pp.G * pp.Tm * utils.POW(pp.HDim, 3) / (pp.Eta * pp.Kappa)
}

// ToMyr converts non dimensional time to millions of years
func (pp PhysicalParams) ToMyr(t float64) float64 {
	return t * pp.HDim * pp.HDim / pp.Kappa / SecondsPerMyr
}

// ToNondimensionalTime converts millions of years to non dimensional time
func (pp PhysicalParams) ToNondimensionalTime(myr float64) float64 {
	return myr * SecondsPerMyr * pp.Kappa / (pp.HDim * pp.HDim)
}

func (pp PhysicalParams) Print() {
	fmt.Printf("kappa = %8.3e, Tm = %8.3f, Tlab = %8.3f, g = %8.3f\n", pp.Kappa, pp.Tm, pp.Tlab, pp.G)
	fmt.Printf("alpha = %8.3e, hdim = %8.3e, eta = %8.3e, rho = %8.3f\n", pp.Alpha, pp.HDim, pp.Eta, pp.Rho)
	fmt.Printf("Rayleigh Number = %8.5e\n", pp.Rayleigh())
}
