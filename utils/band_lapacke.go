//go:build cgo && netlib

package utils

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/netlib/lapack/lapacke"

	"github.com/notargets/gomantle/types"
)

// LapackeBandSolver factors with LAPACK dgbtrf and solves with dgbtrs. It
// applies the same pivot and residual checks as BandSolver.
type LapackeBandSolver struct {
	PivotTol, ResidualTol float64
}

func NewLapackeBandSolver() LapackeBandSolver {
	return LapackeBandSolver{PivotTol: 1.e-13, ResidualTol: 1.e-8}
}

// NewDefaultSolver returns the LAPACK band solver
func NewDefaultSolver() SparseSolver { return NewLapackeBandSolver() }

/*
Solve loads A into row major LAPACKE band storage: 2*KL+KU+1 rows of length
N, element (i,j) at row KL+KU+i-j and column j. The top KL rows are the fill
space dgbtrf needs for row interchanges, and the diagonal of U ends up in
row KL+KU.
*/
func (ls LapackeBandSolver) Solve(A *sparse.CSR, b []float64) (x []float64, err error) {
	var (
		n, nc  = A.Dims()
		kl, ku = Bandwidth(A)
		ldab   = n
		diag   = kl + ku
		ab     = make([]float64, (2*kl+ku+1)*ldab)
		ipiv   = make([]int32, n)
		maxA   float64
	)
	if n != nc {
		panic(fmt.Errorf("band LU requires a square matrix, have %dx%d", n, nc))
	}
	if len(b) != n {
		err = fmt.Errorf("%w: rhs length %d does not match system size %d",
			types.ErrConfiguration, len(b), n)
		return
	}
	A.DoNonZero(func(i, j int, v float64) {
		ab[(diag+i-j)*ldab+j] += v
		maxA = math.Max(maxA, math.Abs(v))
	})
	if maxA == 0 {
		err = fmt.Errorf("%w: matrix is identically zero", types.ErrSingularSystem)
		return
	}
	if !lapacke.Dgbtrf(n, n, kl, ku, ab, ldab, ipiv) {
		err = fmt.Errorf("%w: dgbtrf found an exactly zero pivot", types.ErrSingularSystem)
		return
	}
	for i := 0; i < n; i++ {
		if piv := math.Abs(ab[diag*ldab+i]); !(piv > ls.PivotTol*maxA) {
			err = fmt.Errorf("%w: pivot %8.5e at row %d is below tolerance %8.5e",
				types.ErrSingularSystem, piv, i, ls.PivotTol*maxA)
			return
		}
	}
	x = append([]float64{}, b...)
	if !lapacke.Dgbtrs('N', n, kl, ku, 1, ab, ldab, ipiv, x, 1) {
		err = fmt.Errorf("dgbtrs failed on a %dx%d system", n, n)
		x = nil
		return
	}
	err = CheckSolution(A, x, b, ls.ResidualTol)
	return
}

func (ls LapackeBandSolver) String() string { return "LAPACK Band LU" }
