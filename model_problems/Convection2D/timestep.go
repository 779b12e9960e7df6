package Convection2D

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gomantle/geometry2D"
	"github.com/notargets/gomantle/utils"
)

const (
	DiffusiveLimit = 0.2 // dt_diff = DiffusiveLimit * dx^2
	SafetyFactor   = 0.5
)

/*
Topography is the surface deflection (meters) supporting the normal stress
on the top boundary, taken from the base grid pressure p and z velocity vz:

	topo = -(2*vz[1]/dz - p[0]) * g * rho / Ra

It is returned relative to its mean.
*/
func Topography(g *geometry2D.Grid, p, vz *mat.Dense, pp PhysicalParams, Ra float64) (topo []float64) {
	var (
		scale = pp.G * pp.Rho / Ra
	)
	topo = make([]float64, g.Nx)
	for i := range topo {
		topo[i] = -(2*vz.At(1, i)/g.Dz - p.At(0, i)) * scale
	}
	floats.AddConst(-stat.Mean(topo, nil), topo)
	return
}

// CourantTimestep combines the advective limit min(dx/max|vx|, dz/max|vz|)
// with the diffusive limit. A velocity component that is zero everywhere does
// not constrain the step.
func CourantTimestep(g *geometry2D.Grid, vx, vz *mat.Dense) (dt, dtAdv, dtDiff float64) {
	var (
		vxMax = utils.MaxAbsField(vx)
		vzMax = utils.MaxAbsField(vz)
	)
	dtAdv = math.Inf(1)
	if vxMax > 0 {
		dtAdv = math.Min(dtAdv, g.Dx/vxMax)
	}
	if vzMax > 0 {
		dtAdv = math.Min(dtAdv, g.Dz/vzMax)
	}
	dtDiff = DiffusiveLimit * g.Dx * g.Dx
	dt = SafetyFactor * math.Min(dtDiff, dtAdv)
	return
}
