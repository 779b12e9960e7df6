package Stokes2D

import (
	"fmt"

	"github.com/james-bowman/sparse"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/geometry2D"
	"github.com/notargets/gomantle/types"
	"github.com/notargets/gomantle/utils"
)

// System is one assembled Stokes operator and its right hand side
type System struct {
	A *sparse.CSR
	B []float64
	// Stencil entries written before duplicates were summed
	Entries int
}

/*
Assemble builds the Stokes operator for the current source field.

Node coordinates are 1-based. With N(ix,iz,k) the unknown index from the grid:

	z momentum:  iz in [2,Nz-1], ix in [1,Nx-1]
	x momentum:  ix in [2,Nx-1], iz in [1,Nz-1]
	continuity:  ix in [2,Nx],   iz in [2,Nz], except the datum node (2,2)

Every other unknown is a ghost or a zero velocity wall value and receives an
identity row with a zero right hand side in a separate pass.

The nodes are split by column into ParallelDegree buckets; each bucket
collects its own triplets and the buckets are merged in order, so the result
does not depend on the degree of parallelism.
*/
func (s *Stokes) Assemble(T *mat.Dense) (sys *System, err error) {
	var (
		S *mat.Dense
	)
	if err = s.checkGrid(); err != nil {
		return
	}
	if err = s.Grid.CheckShape("temperature", T); err != nil {
		return
	}
	if S, err = s.Source(T); err != nil {
		return
	}
	var (
		g        = s.Grid
		N        = g.NumUnknowns()
		NP       = utils.ParallelDegree(s.ParallelDegree, g.Nx)
		pm       = utils.NewPartitionMap(NP, g.Nx)
		triplets = make([]*utils.Triplets, NP)
		solved   = make([]bool, N)
		A        = utils.NewDOK(N, N, "Stokes")
	)
	sys = &System{B: make([]float64, N)}
	pm.ParallelFor(func(np, kMin, kMax int) {
		// Each unknown is owned by exactly one column, so the writes into
		// B and solved never overlap between buckets
		tr := utils.NewTriplets(24 * g.Nz * pm.GetBucketDimension(np))
		for k := kMin; k < kMax; k++ {
			ix := k + 1
			s.zMomentumColumn(ix, S, tr, sys.B, solved)
			s.xMomentumColumn(ix, tr, solved)
			s.continuityColumn(ix, tr, solved)
		}
		triplets[np] = tr
	})
	for _, tr := range triplets {
		if tr != nil {
			sys.Entries += tr.Len()
			A.AddTriplets(tr)
		}
	}
	nDefault := defaultRows(A, sys.B, solved)
	if !utils.AllFinite(sys.B) {
		err = fmt.Errorf("%w: Stokes right hand side contains non finite values", types.ErrNumericalDivergence)
		sys = nil
		return
	}
	sys.A = A.ToCSR()
	if log.IsLevelEnabled(log.TraceLevel) {
		log.WithFields(log.Fields{
			"unknowns": N,
			"entries":  sys.Entries,
			"nnz":      sys.A.NNZ(),
			"defaults": nDefault,
			"buckets":  NP,
		}).Trace("assembled Stokes system")
	}
	return
}

func (s *Stokes) zMomentumColumn(ix int, S *mat.Dense, tr *utils.Triplets, B []float64, solved []bool) {
	var (
		g        = s.Grid
		idx      = g.UnknownIndex
		dx2, dz2 = g.Dx * g.Dx, g.Dz * g.Dz
	)
	if ix > g.Nx-1 {
		return
	}
	for iz := 2; iz <= g.Nz-1; iz++ {
		var (
			row    = idx(ix, iz, geometry2D.VelocityZ)
			center = -2/dx2 - 2/dz2
		)
		if ix > 1 {
			tr.Add(row, idx(ix-1, iz, geometry2D.VelocityZ), 1/dx2)
		} else {
			center += s.BC.Correction(1 / dx2)
		}
		if ix < g.Nx-1 {
			tr.Add(row, idx(ix+1, iz, geometry2D.VelocityZ), 1/dx2)
		} else {
			center += s.BC.Correction(1 / dx2)
		}
		tr.Add(row, row, center)
		tr.Add(row, idx(ix, iz+1, geometry2D.VelocityZ), 1/dz2)
		tr.Add(row, idx(ix, iz-1, geometry2D.VelocityZ), 1/dz2)
		tr.Add(row, idx(ix+1, iz, geometry2D.Pressure), 1/g.Dz)
		tr.Add(row, idx(ix+1, iz+1, geometry2D.Pressure), -1/g.Dz)
		B[row] = s.Ra * 0.5 * (S.At(iz-1, ix-1) + S.At(iz-1, ix))
		solved[row] = true
	}
}

func (s *Stokes) xMomentumColumn(ix int, tr *utils.Triplets, solved []bool) {
	var (
		g        = s.Grid
		idx      = g.UnknownIndex
		dx2, dz2 = g.Dx * g.Dx, g.Dz * g.Dz
	)
	if ix < 2 || ix > g.Nx-1 {
		return
	}
	for iz := 1; iz <= g.Nz-1; iz++ {
		var (
			row    = idx(ix, iz, geometry2D.VelocityX)
			center = -2/dx2 - 2/dz2
		)
		tr.Add(row, idx(ix-1, iz, geometry2D.VelocityX), 1/dx2)
		tr.Add(row, idx(ix+1, iz, geometry2D.VelocityX), 1/dx2)
		if iz < g.Nz-1 {
			tr.Add(row, idx(ix, iz+1, geometry2D.VelocityX), 1/dz2)
		} else {
			center += s.BC.Correction(1 / dz2)
		}
		if iz > 1 {
			tr.Add(row, idx(ix, iz-1, geometry2D.VelocityX), 1/dz2)
		} else {
			center += s.BC.Correction(1 / dz2)
		}
		tr.Add(row, row, center)
		tr.Add(row, idx(ix, iz+1, geometry2D.Pressure), 1/g.Dx)
		tr.Add(row, idx(ix+1, iz+1, geometry2D.Pressure), -1/g.Dx)
		solved[row] = true
	}
}

// IsPressureDatum reports whether the pressure at node (ix,iz) is pinned to
// zero in place of its continuity equation.
func IsPressureDatum(ix, iz int) bool { return ix == 2 && iz == 2 }

func (s *Stokes) continuityColumn(ix int, tr *utils.Triplets, solved []bool) {
	var (
		g   = s.Grid
		idx = g.UnknownIndex
	)
	if ix < 2 {
		return
	}
	for iz := 2; iz <= g.Nz; iz++ {
		row := idx(ix, iz, geometry2D.Pressure)
		solved[row] = true
		if IsPressureDatum(ix, iz) {
			tr.Add(row, row, 1)
			continue
		}
		tr.Add(row, idx(ix-1, iz-1, geometry2D.VelocityX), -1/g.Dx)
		tr.Add(row, idx(ix, iz-1, geometry2D.VelocityX), 1/g.Dx)
		tr.Add(row, idx(ix-1, iz-1, geometry2D.VelocityZ), -1/g.Dz)
		tr.Add(row, idx(ix-1, iz, geometry2D.VelocityZ), 1/g.Dz)
	}
}

// defaultRows writes u = 0 for every unknown no equation family claimed
func defaultRows(A utils.DOK, B []float64, solved []bool) (nDefault int) {
	for i, done := range solved {
		if done {
			continue
		}
		A.AddTo(i, i, 1)
		B[i] = 0
		nDefault++
	}
	return
}
