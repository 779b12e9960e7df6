//go:build cgo && netlib

package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/types"
)

func TestLapackeBandSolver(t *testing.T) {
	assert.IsType(t, LapackeBandSolver{}, NewDefaultSolver())
	ls := NewLapackeBandSolver()
	{ // Row interchanges inside the band
		C, b, xExact := interchangeSystem()
		x, err := ls.Solve(C, b)
		require.NoError(t, err)
		assert.InDeltaSlice(t, xExact, x, 1.e-12)
	}
	{ // Agrees with the pure Go band LU, including on tiny entries
		for _, scale := range []float64{1, 1.e-12} {
			C, b := wideBandSystem(scale)
			x, err := ls.Solve(C, b)
			require.NoError(t, err)
			xb, err := NewBandSolver().Solve(C, b)
			require.NoError(t, err)
			s := MaxAbs(xb)
			for i := range x {
				assert.InDelta(t, xb[i], x[i], 1.e-10*s)
			}
		}
	}
	{ // Singular
		zeroRow := mat.NewDense(3, 3, []float64{
			1, 2, 0,
			0, 0, 0,
			0, 1, 3,
		})
		_, err := ls.Solve(csrFromDense(zeroRow), []float64{1, 0, 1})
		assert.True(t, errors.Is(err, types.ErrSingularSystem))
	}
}
