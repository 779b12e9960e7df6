package types

import (
	"fmt"
	"strings"
)

// BCFLAG selects how a velocity component tangential to a wall behaves.
// The Stokes stencil never reaches a node outside the box; instead the
// missing neighbour is folded onto the center coefficient and the variant
// decides the sign of that fold.
type BCFLAG uint8

const (
	BC_FreeSlip BCFLAG = iota // mirrored tangential velocity, zero shear stress
	BC_NoSlip                 // antisymmetric tangential velocity, zero velocity at the wall
)

var BCNameMap = map[string]BCFLAG{
	"freeslip":  BC_FreeSlip,
	"free-slip": BC_FreeSlip,
	"free_slip": BC_FreeSlip,
	"slip":      BC_FreeSlip,
	"noslip":    BC_NoSlip,
	"no-slip":   BC_NoSlip,
	"no_slip":   BC_NoSlip,
	"wall":      BC_NoSlip,
}

func NewBCFLAG(label string) (bc BCFLAG, err error) {
	var ok bool
	if bc, ok = BCNameMap[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("%w: unknown boundary condition %q", ErrConfiguration, label)
	}
	return
}

// Correction returns the amount added to the center coefficient of a
// Laplacian row whose neighbour with coefficient coef lies outside the box.
func (bc BCFLAG) Correction(coef float64) float64 {
	switch bc {
	case BC_FreeSlip:
		return coef
	case BC_NoSlip:
		return -coef
	default:
		panic(fmt.Errorf("unknown boundary condition flag %d", bc))
	}
}

func (bc BCFLAG) String() string {
	switch bc {
	case BC_FreeSlip:
		return "FreeSlip"
	case BC_NoSlip:
		return "NoSlip"
	}
	return "Unknown"
}
