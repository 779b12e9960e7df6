package geometry2D

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/types"
)

// Kind names one of the three unknowns stored at every node of the staggered
// grid. The order is part of the unknown vector layout.
type Kind uint8

const (
	Pressure Kind = iota
	VelocityX
	VelocityZ
	NumKinds
)

func (k Kind) String() string {
	switch k {
	case Pressure:
		return "P"
	case VelocityX:
		return "Vx"
	case VelocityZ:
		return "Vz"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

/*
Grid is a uniform structured grid of Nx by Nz nodes. Node coordinates handed
to UnknownIndex are 1-based, x counts columns and z counts rows downward from
the surface. Fields on the grid are Nz x Nx dense matrices, element
(iz-1, ix-1) holding node (ix, iz).
*/
type Grid struct {
	Nx, Nz        int
	Dx, Dz        float64
	Width, Height float64
}

// NewGrid fits the requested spacing into the box so that the node spacing is
// uniform, adjusting dx and dz to Width/(Nx-1) and Height/(Nz-1).
func NewGrid(width, height, dxRequested, dzRequested float64) (g *Grid, err error) {
	if width <= 0 || height <= 0 || dxRequested <= 0 || dzRequested <= 0 {
		err = fmt.Errorf("%w: grid size and spacing must be positive, have W,H = %g,%g dx,dz = %g,%g",
			types.ErrConfiguration, width, height, dxRequested, dzRequested)
		return
	}
	var (
		nx = int(width/dxRequested + 1)
		nz = int(height/dzRequested + 1)
	)
	if nx < 2 || nz < 2 {
		err = fmt.Errorf("%w: grid needs at least 2 nodes per direction, have nx,nz = %d,%d",
			types.ErrConfiguration, nx, nz)
		return
	}
	g = &Grid{
		Nx:     nx,
		Nz:     nz,
		Dx:     width / float64(nx-1),
		Dz:     height / float64(nz-1),
		Width:  width,
		Height: height,
	}
	return
}

// NewGridFromCounts builds a grid directly from node counts and spacing
func NewGridFromCounts(nx, nz int, dx, dz float64) (g *Grid, err error) {
	if nx < 2 || nz < 2 {
		err = fmt.Errorf("%w: grid needs at least 2 nodes per direction, have nx,nz = %d,%d",
			types.ErrConfiguration, nx, nz)
		return
	}
	if dx <= 0 || dz <= 0 {
		err = fmt.Errorf("%w: spacing must be positive, have dx,dz = %g,%g",
			types.ErrConfiguration, dx, dz)
		return
	}
	g = &Grid{
		Nx: nx, Nz: nz,
		Dx: dx, Dz: dz,
		Width:  dx * float64(nx-1),
		Height: dz * float64(nz-1),
	}
	return
}

func (g *Grid) NumUnknowns() int { return int(NumKinds) * g.Nx * g.Nz }

// UnknownIndex maps a 1-based node and an unknown kind to its position in the
// interleaved (P, Vx, Vz) unknown vector. Nodes are ordered column by column,
// z running fastest.
func (g *Grid) UnknownIndex(ix, iz int, kind Kind) int {
	if ix < 1 || ix > g.Nx || iz < 1 || iz > g.Nz || kind >= NumKinds {
		panic(fmt.Errorf("unknown index out of bounds: (ix,iz,kind) = (%d,%d,%s), grid = %dx%d",
			ix, iz, kind, g.Nx, g.Nz))
	}
	return int(NumKinds)*((ix-1)*g.Nz+(iz-1)) + int(kind)
}

// NodeOf inverts UnknownIndex
func (g *Grid) NodeOf(index int) (ix, iz int, kind Kind) {
	if index < 0 || index >= g.NumUnknowns() {
		panic(fmt.Errorf("unknown index %d out of bounds [0,%d)", index, g.NumUnknowns()))
	}
	node := index / int(NumKinds)
	kind = Kind(index % int(NumKinds))
	ix = node/g.Nz + 1
	iz = node%g.Nz + 1
	return
}

// CheckShape verifies that a field lives on the base grid
func (g *Grid) CheckShape(name string, f mat.Matrix) (err error) {
	if f == nil {
		return fmt.Errorf("%w: %s is nil", types.ErrConfiguration, name)
	}
	if nr, nc := f.Dims(); nr != g.Nz || nc != g.Nx {
		err = fmt.Errorf("%w: %s has shape %dx%d, grid requires %dx%d",
			types.ErrConfiguration, name, nr, nc, g.Nz, g.Nx)
	}
	return
}

// X and Z return the coordinate of 0-based column i and row j
func (g *Grid) X(i int) float64 { return float64(i) * g.Dx }
func (g *Grid) Z(j int) float64 { return float64(j) * g.Dz }

func (g *Grid) NewField() *mat.Dense { return mat.NewDense(g.Nz, g.Nx, nil) }

func (g *Grid) String() string {
	return fmt.Sprintf("%dx%d nodes, dx,dz = %8.5f,%8.5f", g.Nx, g.Nz, g.Dx, g.Dz)
}

// InteriorRegion describes the rows and columns of a raw staggered field
// that hold solved values; the rest are ghost placeholders.
type InteriorRegion struct {
	Name                      string
	SkipFirstRow, SkipLastRow bool
	SkipFirstCol, SkipLastCol bool
}

var (
	// PressureInterior drops the unused first row and column of pressure nodes
	PressureInterior = InteriorRegion{Name: "pressure", SkipFirstRow: true, SkipFirstCol: true}
	// VelocityXInterior drops the unused last row of x-velocity nodes
	VelocityXInterior = InteriorRegion{Name: "x-velocity", SkipLastRow: true}
	// VelocityZInterior drops the unused last column of z-velocity nodes
	VelocityZInterior = InteriorRegion{Name: "z-velocity", SkipLastCol: true}
)

// Bounds returns the half-open row range [i0,i1) and column range [j0,j1)
// of the region within an nr x nc raw field.
func (r InteriorRegion) Bounds(nr, nc int) (i0, i1, j0, j1 int) {
	i0, i1, j0, j1 = 0, nr, 0, nc
	if r.SkipFirstRow {
		i0++
	}
	if r.SkipLastRow {
		i1--
	}
	if r.SkipFirstCol {
		j0++
	}
	if r.SkipLastCol {
		j1--
	}
	return
}

// Apply copies the interior of a raw field into a new matrix
func (r InteriorRegion) Apply(raw *mat.Dense) (R *mat.Dense) {
	var (
		nr, nc         = raw.Dims()
		i0, i1, j0, j1 = r.Bounds(nr, nc)
	)
	if i1 <= i0 || j1 <= j0 {
		panic(fmt.Errorf("%s interior of a %dx%d field is empty", r.Name, nr, nc))
	}
	R = mat.DenseCopyOf(raw.Slice(i0, i1, j0, j1))
	return
}
