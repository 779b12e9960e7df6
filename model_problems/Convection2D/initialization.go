package Convection2D

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/geometry2D"
	"github.com/notargets/gomantle/types"
)

type InitType uint

const (
	LAYERED InitType = iota
	UNIFORM
)

var (
	InitNames = map[string]InitType{
		"layered": LAYERED,
		"uniform": UNIFORM,
	}
	InitPrintNames = []string{"Layered mantle with cold slab and warm block", "Uniform temperature"}
)

func NewInitType(label string) (it InitType, err error) {
	var ok bool
	if len(label) == 0 {
		return LAYERED, nil
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if it, ok = InitNames[label]; !ok {
		err = fmt.Errorf("%w: unable to use init type named %s, must be one of %v",
			types.ErrConfiguration, label, InitNames)
	}
	return
}

func (it InitType) Print() string {
	if int(it) < len(InitPrintNames) {
		return InitPrintNames[it]
	}
	return fmt.Sprintf("InitType(%d)", it)
}

// tempRegion sets T (degrees C) strictly inside a depth band, and inside a
// horizontal band when xMax > xMin. Bounds are dimensional, in meters.
type tempRegion struct {
	zMin, zMax float64
	xMin, xMax float64
	T          float64
}

var layeredRegions = []tempRegion{
	{zMin: 0, zMax: 100.e3, T: 1350},
	{zMin: 100.e3, zMax: 200.e3, T: 1360},
	{zMin: 200.e3, zMax: 300.e3, T: 1380},
	{zMin: 300.e3, zMax: 400.e3, T: 1400},
	{zMin: 400.e3, zMax: 500.e3, T: 1450},
	{zMin: 490.e3, zMax: 600.e3, T: 1500},
	{zMin: 600.e3, zMax: 700.e3, T: 1550},
	{zMin: 700.e3, zMax: 800.e3, T: 1600},
	// Cold slab
	{zMin: 0, zMax: 300.e3, xMin: 200.e3, xMax: 800.e3, T: 1350},
	// Warm block inside the slab
	{zMin: 100.e3, zMax: 400.e3, xMin: 400.e3, xMax: 500.e3, T: 1450},
}

func (r tempRegion) contains(x, z float64) bool {
	if !(z > r.zMin && z < r.zMax) {
		return false
	}
	if r.xMax > r.xMin {
		return x > r.xMin && x < r.xMax
	}
	return true
}

/*
InitialTemperature returns the non dimensional temperature (T/Tm) at t = 0.

UNIFORM is T = 1 everywhere. The layered profile starts from T = 1 and
applies the regions in order, later regions overwriting earlier ones, then
sets the surface row to Tlab/Tm and the bottom row to 1.
*/
func InitialTemperature(g *geometry2D.Grid, pp PhysicalParams, it InitType) (T *mat.Dense, err error) {
	T = g.NewField()
	for j := 0; j < g.Nz; j++ {
		for i := 0; i < g.Nx; i++ {
			T.Set(j, i, 1)
		}
	}
	switch it {
	case UNIFORM:
		return
	case LAYERED:
		for _, r := range layeredRegions {
			for j := 0; j < g.Nz; j++ {
				z := g.Z(j) * pp.HDim
				for i := 0; i < g.Nx; i++ {
					if r.contains(g.X(i)*pp.HDim, z) {
						T.Set(j, i, r.T/pp.Tm)
					}
				}
			}
		}
		for i := 0; i < g.Nx; i++ {
			T.Set(0, i, pp.Tlab/pp.Tm)
			T.Set(g.Nz-1, i, 1)
		}
	default:
		T = nil
		err = fmt.Errorf("%w: unknown init type %d", types.ErrConfiguration, it)
	}
	return
}

// DensityAnomaly returns the banded relative density used with density
// forcing: 0.956 in the top third of the rows, 0.97 down to mid depth and 1
// below.
func DensityAnomaly(g *geometry2D.Grid) (drho *mat.Dense) {
	drho = g.NewField()
	for j := 0; j < g.Nz; j++ {
		val := 1.
		switch {
		case j < g.Nz/3:
			val = 0.956
		case j < g.Nz/2:
			val = 0.97
		}
		for i := 0; i < g.Nx; i++ {
			drho.Set(j, i, val)
		}
	}
	return
}
