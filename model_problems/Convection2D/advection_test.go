package Convection2D

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/geometry2D"
	"github.com/notargets/gomantle/utils"
)

func rowsOf(nz int, row ...float64) *mat.Dense {
	T := mat.NewDense(nz, len(row), nil)
	for j := 0; j < nz; j++ {
		T.SetRow(j, row)
	}
	return T
}

func filled(nz, nx int, val float64) *mat.Dense {
	return mat.NewDense(nz, nx, utils.ConstArray(nz*nx, val))
}

func assertRow(t *testing.T, expected []float64, T *mat.Dense, j int) {
	got := T.RawRowView(j)
	require.Equal(t, len(expected), len(got))
	for i := range expected {
		assert.InDeltaf(t, expected[i], got[i], 1.e-12, "row %d column %d", j, i)
	}
}

func TestUpwindOffset(t *testing.T) {
	assert.Equal(t, -1, UpwindOffset(1))
	assert.Equal(t, -1, UpwindOffset(0))
	assert.Equal(t, -1, UpwindOffset(math.Copysign(0, -1)))
	assert.Equal(t, 1, UpwindOffset(-1.e-300))
	assert.Equal(t, 1, UpwindOffset(math.Inf(-1)))
}

func TestAdvectDiffuse(t *testing.T) {
	g, err := geometry2D.NewGridFromCounts(5, 3, 0.25, 0.5)
	require.NoError(t, err)
	var (
		dt   = 0.01
		zero = filled(3, 5, 0)
	)
	{ // Uniform T is a steady state whatever the flow
		T := filled(3, 5, 0.7)
		Tn := AdvectDiffuse(g, T, filled(3, 5, 3), filled(3, 5, -2), dt)
		assert.True(t, mat.Equal(T, Tn))
	}
	{ // Upwinding in x around a spike, zero velocity takes the left neighbour
		T := rowsOf(3, 0, 0, 1, 0, 0)
		Tc := mat.DenseCopyOf(T)
		for _, tc := range []struct {
			vx       float64
			expected []float64
		}{
			{0, []float64{0, 0.16, 0.68, 0.16, 0}},
			{1, []float64{0, 0.16, 0.64, 0.20, 0}},
			{-1, []float64{0, 0.20, 0.64, 0.16, 0}},
		} {
			Tn := AdvectDiffuse(g, T, filled(3, 5, tc.vx), zero, dt)
			assertRow(t, tc.expected, Tn, 1)
			// Surface and bottom rows are not advanced
			assertRow(t, []float64{0, 0, 1, 0, 0}, Tn, 0)
			assertRow(t, []float64{0, 0, 1, 0, 0}, Tn, 2)
		}
		// Input is untouched
		assert.True(t, mat.Equal(Tc, T))
	}
	{ // Side columns use the mirrored second difference
		T := rowsOf(3, 1, 0, 0, 0, 2)
		Tn := AdvectDiffuse(g, T, zero, zero, dt)
		assertRow(t, []float64{0.68, 0.16, 0, 0.32, 1.36}, Tn, 1)
	}
	{ // Upwinding in z applies to every column, z diffusion to inner columns only
		T := mat.NewDense(3, 5, []float64{
			0, 0, 0, 0, 0,
			1, 1, 1, 1, 1,
			3, 3, 3, 3, 3,
		})
		Tn := AdvectDiffuse(g, T, zero, filled(3, 5, 1), dt)
		assertRow(t, []float64{0.98, 1.02, 1.02, 1.02, 0.98}, Tn, 1)
		Tn = AdvectDiffuse(g, T, zero, filled(3, 5, -1), dt)
		assertRow(t, []float64{1.04, 1.08, 1.08, 1.08, 1.04}, Tn, 1)
		assertRow(t, []float64{3, 3, 3, 3, 3}, Tn, 2)
	}
	{ // Shape mismatch is a programming error
		assert.Panics(t, func() { AdvectDiffuse(g, filled(5, 3, 0), zero, zero, dt) })
		assert.Panics(t, func() {
			AdvectDiffuse(g, zero, zero, zero, dt, utils.NewPartitionMap(1, 3))
		})
	}
}

func TestAdvectDiffuseParallel(t *testing.T) {
	g, err := geometry2D.NewGridFromCounts(12, 10, 0.1, 0.1)
	require.NoError(t, err)
	var (
		r          = rand.New(rand.NewSource(17))
		T, vx, vz  = g.NewField(), g.NewField(), g.NewField()
		dt         = 1.e-3
		serial     *mat.Dense
		nr, nc     = T.Dims()
		randomizer = func(f *mat.Dense, scale float64) {
			for j := 0; j < nr; j++ {
				for i := 0; i < nc; i++ {
					f.Set(j, i, scale*(r.Float64()-0.5))
				}
			}
		}
	)
	randomizer(T, 1)
	randomizer(vx, 10)
	randomizer(vz, 10)
	serial = AdvectDiffuse(g, T, vx, vz, dt)
	for _, np := range []int{2, 3, 8} {
		Tn := AdvectDiffuse(g, T, vx, vz, dt, utils.NewPartitionMap(np, g.Nz-2))
		assert.True(t, mat.Equal(serial, Tn))
	}
}

func TestTopography(t *testing.T) {
	g, err := geometry2D.NewGridFromCounts(3, 3, 0.5, 0.5)
	require.NoError(t, err)
	var (
		pp = PhysicalParams{G: 1, Rho: 1}
		p  = mat.NewDense(3, 3, []float64{
			1, 2, 3,
			9, 9, 9,
			9, 9, 9,
		})
		vz = mat.NewDense(3, 3, []float64{
			7, 7, 7,
			0.5, 0.25, 0,
			7, 7, 7,
		})
	)
	topo := Topography(g, p, vz, pp, 1)
	assert.InDeltaSlice(t, []float64{-2, 0, 2}, topo, 1.e-12)
	// Scales with g*rho/Ra
	pp.G, pp.Rho = 10, 2
	topo = Topography(g, p, vz, pp, 4)
	assert.InDeltaSlice(t, []float64{-10, 0, 10}, topo, 1.e-12)
	// Uniform stress gives no relief
	topo = Topography(g, filled(3, 3, 5), filled(3, 3, 1), pp, 4)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, topo, 1.e-12)
}

func TestCourantTimestep(t *testing.T) {
	g, err := geometry2D.NewGridFromCounts(5, 5, 0.015, 0.015)
	require.NoError(t, err)
	{
		vx, vz := filled(5, 5, 0.5), filled(5, 5, 0.25)
		vx.Set(2, 3, -2)
		vz.Set(4, 0, 1)
		dt, dtAdv, dtDiff := CourantTimestep(g, vx, vz)
		assert.InDelta(t, 4.5e-5, dtDiff, 1.e-18)
		assert.InDelta(t, 0.0075, dtAdv, 1.e-15)
		assert.InDelta(t, 2.25e-5, dt, 1.e-18)
	}
	{ // Fast flow takes over from diffusion
		vx, vz := filled(5, 5, 1000), filled(5, 5, 0)
		dt, dtAdv, _ := CourantTimestep(g, vx, vz)
		assert.InDelta(t, 1.5e-5, dtAdv, 1.e-18)
		assert.InDelta(t, 7.5e-6, dt, 1.e-18)
	}
	{ // No flow leaves only the diffusive limit
		dt, dtAdv, dtDiff := CourantTimestep(g, filled(5, 5, 0), filled(5, 5, 0))
		assert.True(t, math.IsInf(dtAdv, 1))
		assert.Equal(t, 0.5*dtDiff, dt)
	}
}
