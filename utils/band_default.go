//go:build !cgo || !netlib

package utils

// NewDefaultSolver returns the pure Go band solver. Building with
// -tags netlib swaps in LAPACK's band LU.
func NewDefaultSolver() SparseSolver { return NewBandSolver() }
