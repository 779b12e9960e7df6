package utils

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func ConstArray(N int, val float64) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}

func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if pp > 8 || pp < -8 {
		goto MATHPOW
	}

	if p < 0 {
		p = -pp
		flipped = true
	}
	switch p {
	case 0:
		y = 1
	case 1:
		y = x
	case 2:
		y = x * x
	case 3:
		y = x * x * x
	case 4:
		y = x * x
		y = y * y
	case 5:
		y = x * x
		y = y * y * x
	case 6:
		y = x * x
		y = y * y * y
	case 7:
		y = x * x
		y = y * y * y * x
	case 8:
		y = x * x
		y = y * y * y * y
	}
	if flipped {
		y = 1. / y
	}
	return

MATHPOW:
	y = math.Pow(x, float64(p))
	return
}

// MaxAbs returns the largest magnitude in v, zero for an empty slice
func MaxAbs(v []float64) (m float64) {
	if len(v) == 0 {
		return
	}
	m = math.Max(math.Abs(floats.Max(v)), math.Abs(floats.Min(v)))
	return
}

// MaxAbsField is MaxAbs over every element of a dense field
func MaxAbsField(f *mat.Dense) float64 {
	var (
		nr, _ = f.Dims()
		m     float64
	)
	for i := 0; i < nr; i++ {
		m = math.Max(m, MaxAbs(f.RawRowView(i)))
	}
	return m
}

func AllFinite(v []float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// FieldMean is the arithmetic mean of all elements of a dense field
func FieldMean(f *mat.Dense) float64 {
	var (
		nr, nc = f.Dims()
		sum    float64
	)
	for i := 0; i < nr; i++ {
		sum += floats.Sum(f.RawRowView(i))
	}
	return sum / float64(nr*nc)
}
