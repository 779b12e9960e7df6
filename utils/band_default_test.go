//go:build !cgo || !netlib

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSolver(t *testing.T) {
	assert.IsType(t, BandSolver{}, NewDefaultSolver())
	C, b, xExact := interchangeSystem()
	x, err := NewDefaultSolver().Solve(C, b)
	assert.NoError(t, err)
	assert.InDeltaSlice(t, xExact, x, 1.e-12)
}
