package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDOK(t *testing.T) {
	{ // Repeated contributions are summed
		T := NewTriplets(4)
		T.Add(0, 0, 1)
		T.Add(0, 0, 2)
		T.Add(1, 2, -1)
		T.Add(2, 1, 4)
		assert.Equal(t, 4, T.Len())
		A := NewDOK(3, 3, "A").AddTriplets(T)
		assert.Equal(t, 3., A.At(0, 0))
		assert.Equal(t, -1., A.At(1, 2))
		assert.Equal(t, 0., A.At(2, 2))
		C := A.ToCSR()
		assert.Equal(t, 3., C.At(0, 0))
		assert.Equal(t, 4., C.At(2, 1))
		assert.Equal(t, []float64{3, -1, 4}, CSRMulVec(C, []float64{1, 1, 1}))
		kl, ku := Bandwidth(C)
		assert.Equal(t, 1, kl)
		assert.Equal(t, 1, ku)
		assert.Panics(t, func() { A.AddTo(3, 0, 1) })
		assert.Panics(t, func() { CSRMulVec(C, []float64{1}) })
	}
}
