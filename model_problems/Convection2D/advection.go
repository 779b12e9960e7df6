package Convection2D

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/geometry2D"
	"github.com/notargets/gomantle/utils"
)

// UpwindOffset returns the offset of the upwind neighbour for velocity v.
// Zero velocity of either sign counts as positive flow.
func UpwindOffset(v float64) int {
	if v >= 0 {
		return -1
	}
	return 1
}

/*
AdvectDiffuse advances T by one explicit step of

	dT/dt = d2T/dx2 + d2T/dz2 - vx*dT/dx - vz*dT/dz

with central differences for diffusion and first order upwind advection. The
result is a new field; T, vx and vz are only read.

Only rows 1..Nz-2 are updated, the surface and bottom rows are copied as they
are. The side columns mirror their inner neighbour in x, which doubles the one
sided second difference, and carry no z diffusion or x advection.

The rows may be split among go routines by passing a partition map over the
Nz-2 updated rows.
*/
func AdvectDiffuse(g *geometry2D.Grid, T, vx, vz *mat.Dense, dt float64, pm ...*utils.PartitionMap) (Tn *mat.Dense) {
	var (
		Nz   = g.Nz
		part *utils.PartitionMap
	)
	for _, f := range []*mat.Dense{T, vx, vz} {
		if err := g.CheckShape("advected field", f); err != nil {
			panic(err)
		}
	}
	if len(pm) != 0 && pm[0] != nil {
		part = pm[0]
		if part.MaxIndex != Nz-2 {
			panic(fmt.Errorf("partition map covers %d rows, grid has %d interior rows", part.MaxIndex, Nz-2))
		}
	} else {
		part = utils.NewPartitionMap(1, Nz-2)
	}
	Tn = g.NewField()
	Tn.SetRow(0, T.RawRowView(0))
	Tn.SetRow(Nz-1, T.RawRowView(Nz-1))
	part.ParallelFor(func(np, kMin, kMax int) {
		for k := kMin; k < kMax; k++ {
			j := k + 1
			advanceRow(g, j, T, vx, vz, dt, Tn.RawRowView(j))
		}
	})
	return
}

func advanceRow(g *geometry2D.Grid, j int, T, vx, vz *mat.Dense, dt float64, out []float64) {
	var (
		Nx       = g.Nx
		dx, dz   = g.Dx, g.Dz
		dx2, dz2 = dx * dx, dz * dz
		t        = T.RawRowView(j)
		tUp      = T.RawRowView(j - 1)
		tDown    = T.RawRowView(j + 1)
		vxR      = vx.RawRowView(j)
		vzR      = vz.RawRowView(j)
	)
	for i := 0; i < Nx; i++ {
		var dTdt float64
		switch i {
		case 0:
			dTdt = 2 * (t[1] - t[0]) / dx2
		case Nx - 1:
			dTdt = 2 * (t[Nx-2] - t[Nx-1]) / dx2
		default:
			dTdt = (t[i-1]-2*t[i]+t[i+1])/dx2 + (tUp[i]-2*t[i]+tDown[i])/dz2
			// Upwind in x, vx >= 0 takes the left neighbour
			if off := UpwindOffset(vxR[i]); off < 0 {
				dTdt += vxR[i] * (t[i-1] - t[i]) / dx
			} else {
				dTdt += vxR[i] * (t[i] - t[i+1]) / dx
			}
		}
		// Upwind in z, vz >= 0 takes the row above
		if off := UpwindOffset(vzR[i]); off < 0 {
			dTdt += vzR[i] * (tUp[i] - t[i]) / dz
		} else {
			dTdt += vzR[i] * (t[i] - tDown[i]) / dz
		}
		out[i] = t[i] + dt*dTdt
	}
}
