package utils

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/types"
)

/*
BandLU holds a square banded matrix with KL sub diagonals and KU super
diagonals, factored in place by LUPDecompose.

Row i is stored contiguously in AB[i*W:(i+1)*W] and column j of that row
lives at offset j-i+KL, so W = 2*KL+KU+1 leaves room for the KL extra super
diagonals that row interchanges introduce into U.
*/
type BandLU struct {
	N, KL, KU, W int
	AB           []float64
	P            []int // P[k] is the row swapped with row k at elimination step k
	tol          float64
	decomposed   bool
}

func NewBandLU(A *sparse.CSR) (bl *BandLU) {
	var (
		nr, nc = A.Dims()
	)
	if nr != nc {
		panic(fmt.Errorf("band LU requires a square matrix, have %dx%d", nr, nc))
	}
	kl, ku := Bandwidth(A)
	bl = &BandLU{
		N:   nr,
		KL:  kl,
		KU:  ku,
		W:   2*kl + ku + 1,
		tol: 1.e-13,
	}
	bl.AB = make([]float64, bl.N*bl.W)
	A.DoNonZero(func(i, j int, v float64) {
		bl.AB[bl.ind(i, j)] += v
	})
	return
}

func (bl *BandLU) ind(i, j int) int { return i*bl.W + j - i + bl.KL }

// SetTol sets the pivot tolerance relative to the largest matrix entry
func (bl *BandLU) SetTol(tol float64) *BandLU {
	bl.tol = tol
	return bl
}

func (bl *BandLU) LUPDecompose() (err error) {
	/*
	   Gaussian elimination with partial pivoting restricted to the band,
	   producing P * A = L * U with the multipliers of L stored below the
	   diagonal and U (bandwidth KL+KU) on and above it.

	   Interchanges at step k only touch columns >= k, so the multipliers of
	   earlier steps stay where they were computed and LUPSolve replays the
	   interchanges and eliminations in the same order.
	*/
	var (
		N, KL, KU = bl.N, bl.KL, bl.KU
		AB        = bl.AB
		maxA      float64
	)
	if bl.decomposed {
		err = fmt.Errorf("LUPDecompose already called on this matrix, which has overwritten it")
		return
	}
	for _, v := range AB {
		if a := math.Abs(v); a > maxA {
			maxA = a
		}
	}
	if maxA == 0 {
		err = fmt.Errorf("%w: matrix is identically zero", types.ErrSingularSystem)
		return
	}
	bl.P = make([]int, N)
	for k := 0; k < N; k++ {
		var (
			rMax = min(N-1, k+KL)
			cMax = min(N-1, k+KL+KU)
			imax = k
			piv  = math.Abs(AB[bl.ind(k, k)])
		)
		for r := k + 1; r <= rMax; r++ {
			if a := math.Abs(AB[bl.ind(r, k)]); a > piv {
				piv = a
				imax = r
			}
		}
		if !(piv > bl.tol*maxA) {
			err = fmt.Errorf("%w: pivot %8.5e at row %d is below tolerance %8.5e",
				types.ErrSingularSystem, piv, k, bl.tol*maxA)
			return
		}
		bl.P[k] = imax
		if imax != k {
			for j := k; j <= cMax; j++ {
				a, b := bl.ind(k, j), bl.ind(imax, j)
				AB[a], AB[b] = AB[b], AB[a]
			}
		}
		var (
			pivot = AB[bl.ind(k, k)]
			kBase = bl.ind(k, 0) // AB[kBase+j] is column j of row k
		)
		for r := k + 1; r <= rMax; r++ {
			rk := bl.ind(r, k)
			if AB[rk] == 0 {
				continue
			}
			l := AB[rk] / pivot
			AB[rk] = l
			rBase := bl.ind(r, 0)
			for j := k + 1; j <= cMax; j++ {
				AB[rBase+j] -= l * AB[kBase+j]
			}
		}
	}
	bl.decomposed = true
	return
}

func (bl *BandLU) LUPSolve(b []float64) (x []float64, err error) {
	var (
		N, KL, KU = bl.N, bl.KL, bl.KU
		AB        = bl.AB
	)
	if !bl.decomposed {
		err = fmt.Errorf("uninitialized - call LUPDecompose first")
		return
	}
	if len(b) != N {
		err = fmt.Errorf("%w: rhs length %d does not match system size %d",
			types.ErrConfiguration, len(b), N)
		return
	}
	x = make([]float64, N)
	copy(x, b)
	// Forward: replay interchanges and apply unit lower factor
	for k := 0; k < N; k++ {
		if p := bl.P[k]; p != k {
			x[k], x[p] = x[p], x[k]
		}
		xk := x[k]
		if xk == 0 {
			continue
		}
		rMax := min(N-1, k+KL)
		for r := k + 1; r <= rMax; r++ {
			x[r] -= AB[bl.ind(r, k)] * xk
		}
	}
	// Backward: upper factor
	for i := N - 1; i >= 0; i-- {
		var (
			sum  = x[i]
			cMax = min(N-1, i+KL+KU)
		)
		for j := i + 1; j <= cMax; j++ {
			sum -= AB[bl.ind(i, j)] * x[j]
		}
		x[i] = sum / AB[bl.ind(i, i)]
	}
	return
}

// SparseSolver solves A x = b for a square sparse operator
type SparseSolver interface {
	Solve(A *sparse.CSR, b []float64) (x []float64, err error)
}

// BandSolver is a direct solver for sparse systems whose non zeros cluster
// around the diagonal, as in node ordered finite difference operators.
type BandSolver struct {
	PivotTol, ResidualTol float64
}

func NewBandSolver() BandSolver {
	return BandSolver{PivotTol: 1.e-13, ResidualTol: 1.e-8}
}

func (bs BandSolver) Solve(A *sparse.CSR, b []float64) (x []float64, err error) {
	bl := NewBandLU(A)
	if bs.PivotTol > 0 {
		bl.SetTol(bs.PivotTol)
	}
	if err = bl.LUPDecompose(); err != nil {
		return
	}
	if x, err = bl.LUPSolve(b); err != nil {
		return
	}
	err = CheckSolution(A, x, b, bs.ResidualTol)
	return
}

func (bs BandSolver) String() string { return "Band LU" }

// DenseSolver copies the operator into a dense matrix and uses gonum's LU.
// Memory grows with the square of the unknown count, so it suits small grids
// and cross checks.
type DenseSolver struct {
	ResidualTol float64
}

func NewDenseSolver() DenseSolver { return DenseSolver{ResidualTol: 1.e-8} }

func (ds DenseSolver) Solve(A *sparse.CSR, b []float64) (x []float64, err error) {
	var (
		lu   mat.LU
		n, _ = A.Dims()
		bV   = mat.NewVecDense(len(b), append([]float64{}, b...))
		xV   = mat.NewVecDense(n, nil)
	)
	if len(b) != n {
		err = fmt.Errorf("%w: rhs length %d does not match system size %d",
			types.ErrConfiguration, len(b), n)
		return
	}
	lu.Factorize(mat.DenseCopyOf(A))
	// The determinant underflows on large, weakly scaled systems, so only the
	// condition estimate decides singularity
	if err = lu.SolveVecTo(xV, false, bV); err != nil {
		err = fmt.Errorf("%w: %v", types.ErrSingularSystem, err)
		return
	}
	x = xV.RawVector().Data
	err = CheckSolution(A, x, b, ds.ResidualTol)
	return
}

func (ds DenseSolver) String() string { return "Dense LU" }

// CheckSolution reports non finite solutions as divergence and solutions that
// fail |Ax-b| <= tol*(|A||x|+|b|) (infinity norms) as a singular system.
func CheckSolution(A *sparse.CSR, x, b []float64, tol float64) (err error) {
	if !AllFinite(x) {
		err = fmt.Errorf("%w: solution contains non finite values", types.ErrNumericalDivergence)
		return
	}
	if tol <= 0 {
		return
	}
	var (
		nr, _      = A.Dims()
		rowSum     = make([]float64, nr)
		normA, res float64
		normX      = MaxAbs(x)
		normB      = MaxAbs(b)
		y          = CSRMulVec(A, x)
	)
	A.DoNonZero(func(i, j int, v float64) {
		rowSum[i] += math.Abs(v)
	})
	normA = MaxAbs(rowSum)
	for i := range y {
		if r := math.Abs(y[i] - b[i]); r > res {
			res = r
		}
	}
	if res > tol*(normA*normX+normB) {
		err = fmt.Errorf("%w: residual %8.5e exceeds %8.5e",
			types.ErrSingularSystem, res, tol*(normA*normX+normB))
	}
	return
}
