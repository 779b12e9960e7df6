package Stokes2D

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gomantle/geometry2D"
	"github.com/notargets/gomantle/types"
	"github.com/notargets/gomantle/utils"
)

type Fields struct {
	P, Vx, Vz *mat.Dense
}

/*
ExtractFields de-interleaves a solution vector into pressure and velocity,
then strips the ghost rows and columns of each staggered field:

	P  (Nz-1)x(Nx-1), shifted to zero mean
	Vx (Nz-1)x Nx
	Vz  Nz   x(Nx-1)
*/
func ExtractFields(g *geometry2D.Grid, x []float64) (f Fields, err error) {
	if len(x) != g.NumUnknowns() {
		err = fmt.Errorf("%w: solution length %d does not match %d unknowns",
			types.ErrConfiguration, len(x), g.NumUnknowns())
		return
	}
	if !utils.AllFinite(x) {
		err = fmt.Errorf("%w: Stokes solution contains non finite values", types.ErrNumericalDivergence)
		return
	}
	var raw [geometry2D.NumKinds]*mat.Dense
	for k := range raw {
		raw[k] = g.NewField()
	}
	for ix := 1; ix <= g.Nx; ix++ {
		for iz := 1; iz <= g.Nz; iz++ {
			for k := geometry2D.Pressure; k < geometry2D.NumKinds; k++ {
				raw[k].Set(iz-1, ix-1, x[g.UnknownIndex(ix, iz, k)])
			}
		}
	}
	f.P = geometry2D.PressureInterior.Apply(raw[geometry2D.Pressure])
	f.Vx = geometry2D.VelocityXInterior.Apply(raw[geometry2D.VelocityX])
	f.Vz = geometry2D.VelocityZInterior.Apply(raw[geometry2D.VelocityZ])
	pD := f.P.RawMatrix().Data
	mean := stat.Mean(pD, nil)
	for i := range pD {
		pD[i] -= mean
	}
	return
}

// InterpolateToBase moves the staggered fields onto the Nz x Nx base nodes.
// Velocities are averaged across the staggered direction and copied at the
// edges; pressure is averaged from its (up to) four surrounding values.
func InterpolateToBase(g *geometry2D.Grid, f Fields) (b Fields) {
	var (
		Nx, Nz = g.Nx, g.Nz
		pp     = f.P
	)
	b = Fields{P: g.NewField(), Vx: g.NewField(), Vz: g.NewField()}
	for i := 0; i < Nx; i++ {
		b.Vx.Set(0, i, f.Vx.At(0, i))
		b.Vx.Set(Nz-1, i, f.Vx.At(Nz-2, i))
		for j := 1; j < Nz-1; j++ {
			b.Vx.Set(j, i, 0.5*(f.Vx.At(j-1, i)+f.Vx.At(j, i)))
		}
	}
	for j := 0; j < Nz; j++ {
		b.Vz.Set(j, 0, f.Vz.At(j, 0))
		b.Vz.Set(j, Nx-1, f.Vz.At(j, Nx-2))
		for i := 1; i < Nx-1; i++ {
			b.Vz.Set(j, i, 0.5*(f.Vz.At(j, i-1)+f.Vz.At(j, i)))
		}
	}
	for j := 1; j < Nz-1; j++ {
		for i := 1; i < Nx-1; i++ {
			b.P.Set(j, i, 0.25*(pp.At(j-1, i-1)+pp.At(j, i-1)+pp.At(j-1, i)+pp.At(j, i)))
		}
	}
	// Edges see two pressure points, corners one
	for i := 1; i < Nx-1; i++ {
		b.P.Set(0, i, 0.5*(pp.At(0, i-1)+pp.At(0, i)))
		b.P.Set(Nz-1, i, 0.5*(pp.At(Nz-2, i-1)+pp.At(Nz-2, i)))
	}
	for j := 1; j < Nz-1; j++ {
		b.P.Set(j, 0, 0.5*(pp.At(j-1, 0)+pp.At(j, 0)))
		b.P.Set(j, Nx-1, 0.5*(pp.At(j-1, Nx-2)+pp.At(j, Nx-2)))
	}
	b.P.Set(0, 0, pp.At(0, 0))
	b.P.Set(Nz-1, 0, pp.At(Nz-2, 0))
	b.P.Set(0, Nx-1, pp.At(0, Nx-2))
	b.P.Set(Nz-1, Nx-1, pp.At(Nz-2, Nx-2))
	return
}
