package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Triplets is an unordered list of (row, col, value) contributions. Repeated
// (row, col) pairs are summed when the list is loaded into a DOK.
type Triplets struct {
	Rows, Cols []int
	Vals       []float64
}

func NewTriplets(capacity int) (T *Triplets) {
	T = &Triplets{
		Rows: make([]int, 0, capacity),
		Cols: make([]int, 0, capacity),
		Vals: make([]float64, 0, capacity),
	}
	return
}

func (T *Triplets) Add(i, j int, val float64) {
	T.Rows = append(T.Rows, i)
	T.Cols = append(T.Cols, j)
	T.Vals = append(T.Vals, val)
}

func (T *Triplets) Len() int { return len(T.Vals) }

type DOK struct {
	M    *sparse.DOK
	name string
}

func NewDOK(nr, nc int, name ...string) (R DOK) {
	R = DOK{
		M:    sparse.NewDOK(nr, nc),
		name: "unnamed",
	}
	if len(name) != 0 {
		R.name = name[0]
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

// AddTo accumulates val into element (i,j)
func (m DOK) AddTo(i, j int, val float64) {
	var (
		nr, nc = m.Dims()
	)
	if i < 0 || i >= nr || j < 0 || j >= nc {
		panic(fmt.Errorf("index (%d,%d) out of bounds for %dx%d matrix %q", i, j, nr, nc, m.name))
	}
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) AddTriplets(T *Triplets) DOK {
	for n, val := range T.Vals {
		m.AddTo(T.Rows[n], T.Cols[n], val)
	}
	return m
}

func (m DOK) ToCSR() *sparse.CSR { return m.M.ToCSR() }

// Bandwidth returns the number of sub (kl) and super (ku) diagonals holding
// non zeros.
func Bandwidth(A *sparse.CSR) (kl, ku int) {
	A.DoNonZero(func(i, j int, v float64) {
		if v == 0 {
			return
		}
		if i-j > kl {
			kl = i - j
		}
		if j-i > ku {
			ku = j - i
		}
	})
	return
}

// CSRMulVec returns A*x
func CSRMulVec(A *sparse.CSR, x []float64) (y []float64) {
	var (
		nr, nc = A.Dims()
	)
	if len(x) != nc {
		panic(fmt.Errorf("dimension mismatch: matrix is %dx%d, vector is %d", nr, nc, len(x)))
	}
	y = make([]float64, nr)
	A.DoNonZero(func(i, j int, v float64) {
		y[i] += v * x[j]
	})
	return
}
