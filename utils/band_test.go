package utils

import (
	"errors"
	"math"
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/types"
)

func csrFromDense(A *mat.Dense) *sparse.CSR {
	var (
		nr, nc = A.Dims()
		T      = NewTriplets(nr * nc)
	)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			if v := A.At(i, j); v != 0 {
				T.Add(i, j, v)
			}
		}
	}
	return NewDOK(nr, nc).AddTriplets(T).ToCSR()
}

func interchangeSystem() (C *sparse.CSR, b, xExact []float64) {
	A := mat.NewDense(5, 5, []float64{
		0, 1, 0, 0, 0,
		1, 0, 2, 0, 0,
		0, 3, 0, 1, 0,
		0, 0, 1, 0, 4,
		0, 0, 0, 2, 1,
	})
	xExact = []float64{-1, 0.5, 2, 3, -2}
	C = csrFromDense(A)
	b = CSRMulVec(C, xExact)
	return
}

// wideBandSystem is a 30x30 diagonally weighted system with 7 sub and 6 super
// diagonals, every entry of A multiplied by scale
func wideBandSystem(scale float64) (C *sparse.CSR, b []float64) {
	var (
		N    = 30
		A    = mat.NewDense(N, N, nil)
		offs = []int{-7, -3, -1, 1, 2, 6}
	)
	b = make([]float64, N)
	for i := 0; i < N; i++ {
		A.Set(i, i, scale*(10+float64(i%3)))
		for n, o := range offs {
			if j := i + o; j >= 0 && j < N {
				A.Set(i, j, scale*math.Sin(float64(i+n)))
			}
		}
		b[i] = math.Cos(float64(i))
	}
	C = csrFromDense(A)
	return
}

func TestBandLU(t *testing.T) {
	{ // Tridiagonal system with a known solution
		A := mat.NewDense(4, 4, []float64{
			2, -1, 0, 0,
			-1, 2, -1, 0,
			0, -1, 2, -1,
			0, 0, -1, 2,
		})
		xExact := []float64{1, 2, 3, 4}
		b := CSRMulVec(csrFromDense(A), xExact)
		bl := NewBandLU(csrFromDense(A))
		assert.Equal(t, 1, bl.KL)
		assert.Equal(t, 1, bl.KU)
		assert.Equal(t, 4, bl.W)
		require.NoError(t, bl.LUPDecompose())
		x, err := bl.LUPSolve(b)
		require.NoError(t, err)
		assert.InDeltaSlice(t, xExact, x, 1.e-12)
		// A factored matrix can't be factored twice
		assert.Error(t, bl.LUPDecompose())
		// Repeated solves reuse the factorization
		x, err = bl.LUPSolve([]float64{1, 0, 0, 1})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 1, 1, 1}, x, 1.e-12)
	}
	{ // Zero diagonal entries need row interchanges, like the continuity rows
		C, b, xExact := interchangeSystem()
		x, err := NewBandSolver().Solve(C, b)
		require.NoError(t, err)
		assert.InDeltaSlice(t, xExact, x, 1.e-12)
		xd, err := NewDenseSolver().Solve(C, b)
		require.NoError(t, err)
		assert.InDeltaSlice(t, x, xd, 1.e-12)
	}
	{ // Wider band, diagonally weighted, compared against the dense solver
		C, b := wideBandSystem(1)
		kl, ku := Bandwidth(C)
		assert.Equal(t, 7, kl)
		assert.Equal(t, 6, ku)
		x, err := NewBandSolver().Solve(C, b)
		require.NoError(t, err)
		xd, err := NewDenseSolver().Solve(C, b)
		require.NoError(t, err)
		assert.InDeltaSlice(t, xd, x, 1.e-10)
	}
	{ // Tiny entries underflow the determinant but the system is well posed
		C, b := wideBandSystem(1.e-12)
		x, err := NewBandSolver().Solve(C, b)
		require.NoError(t, err)
		xd, err := NewDenseSolver().Solve(C, b)
		require.NoError(t, err)
		scale := MaxAbs(x)
		require.Greater(t, scale, 0.)
		for i := range x {
			assert.InDelta(t, x[i], xd[i], 1.e-10*scale)
		}
		// Scaling A by 1e-12 scales the solution by 1e12
		C1, b1 := wideBandSystem(1)
		x1, err := NewBandSolver().Solve(C1, b1)
		require.NoError(t, err)
		for i := range x {
			assert.InDelta(t, 1.e12*x1[i], x[i], 1.e-9*scale)
		}
	}
	{ // Singular systems are reported, not returned as garbage
		zeroRow := mat.NewDense(3, 3, []float64{
			1, 2, 0,
			0, 0, 0,
			0, 1, 3,
		})
		_, err := NewBandSolver().Solve(csrFromDense(zeroRow), []float64{1, 0, 1})
		assert.True(t, errors.Is(err, types.ErrSingularSystem))
		_, err = NewDenseSolver().Solve(csrFromDense(zeroRow), []float64{1, 0, 1})
		assert.True(t, errors.Is(err, types.ErrSingularSystem))
		dupRow := mat.NewDense(3, 3, []float64{
			1, 1, 0,
			1, 1, 0,
			0, 1, 1,
		})
		_, err = NewBandSolver().Solve(csrFromDense(dupRow), []float64{1, 2, 3})
		assert.True(t, errors.Is(err, types.ErrSingularSystem))
	}
	{ // Non finite right hand sides surface as divergence
		A := mat.NewDense(2, 2, []float64{2, 0, 0, 2})
		_, err := NewBandSolver().Solve(csrFromDense(A), []float64{1, math.NaN()})
		assert.True(t, errors.Is(err, types.ErrNumericalDivergence))
	}
	{
		bl := NewBandLU(csrFromDense(mat.NewDense(2, 2, []float64{1, 0, 0, 1})))
		_, err := bl.LUPSolve([]float64{1, 1})
		assert.Error(t, err)
	}
}

func TestMath(t *testing.T) {
	assert.Equal(t, 3., MaxAbs([]float64{1, -3, 2}))
	assert.Equal(t, 0., MaxAbs(nil))
	f := mat.NewDense(2, 2, []float64{1, -5, 2, 4})
	assert.Equal(t, 5., MaxAbsField(f))
	assert.Equal(t, 0.5, FieldMean(f))
	assert.True(t, AllFinite([]float64{1, 2}))
	assert.False(t, AllFinite([]float64{1, math.Inf(1)}))
	assert.True(t, IsNan(mat.NewDense(1, 2, []float64{0, math.NaN()})))
	assert.False(t, IsNan(f))
	assert.Equal(t, 8., POW(2, 3))
	assert.Equal(t, 0.25, POW(2, -2))
}
