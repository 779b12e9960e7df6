package Stokes2D

import (
	"fmt"
	"strings"

	"github.com/james-bowman/sparse"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/geometry2D"
	"github.com/notargets/gomantle/types"
	"github.com/notargets/gomantle/utils"
)

// LinearSolver solves the assembled Stokes system. Implementations must be
// deterministic and report failures through errors, never through NaNs.
type LinearSolver interface {
	Solve(A *sparse.CSR, b []float64) (x []float64, err error)
}

type ForcingType uint8

const (
	TemperatureForcing ForcingType = iota // Ra * T drives the z momentum rows
	DensityForcing                        // Ra * drho, with drho fixed for the run
)

var (
	ForcingNames = map[string]ForcingType{
		"temperature": TemperatureForcing,
		"density":     DensityForcing,
	}
	ForcingPrintNames = []string{"Temperature", "Density Anomaly"}
)

func NewForcingType(label string) (ft ForcingType, err error) {
	var ok bool
	if len(label) == 0 {
		return TemperatureForcing, nil
	}
	if ft, ok = ForcingNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("%w: unable to use forcing type named %q", types.ErrConfiguration, label)
	}
	return
}

func (ft ForcingType) Print() string {
	if int(ft) < len(ForcingPrintNames) {
		return ForcingPrintNames[ft]
	}
	return fmt.Sprintf("ForcingType(%d)", uint8(ft))
}

/*
Stokes is the constant viscosity, incompressible Stokes problem on a
staggered grid:

	laplacian(vx) - dp/dx = 0
	laplacian(vz) - dp/dz = Ra * S
	dvx/dx + dvz/dz       = 0

where S is either the temperature field or a fixed density anomaly.
*/
type Stokes struct {
	Grid           *geometry2D.Grid
	BC             types.BCFLAG
	Forcing        ForcingType
	DensityAnomaly *mat.Dense // Used with DensityForcing
	Ra             float64
	Solver         LinearSolver
	ParallelDegree int // Number of go routines used in assembly, 0 means one per CPU
}

func NewStokes(grid *geometry2D.Grid, bc types.BCFLAG, Ra float64) (s *Stokes, err error) {
	s = &Stokes{
		Grid:   grid,
		BC:     bc,
		Ra:     Ra,
		Solver: utils.NewDefaultSolver(),
	}
	if err = s.checkGrid(); err != nil {
		s = nil
	}
	return
}

func (s *Stokes) checkGrid() (err error) {
	if s.Grid == nil {
		return fmt.Errorf("%w: Stokes problem has no grid", types.ErrConfiguration)
	}
	if s.Grid.Nx < 3 || s.Grid.Nz < 3 {
		err = fmt.Errorf("%w: Stokes assembly needs at least 3x3 nodes to hold an interior point, have %dx%d",
			types.ErrConfiguration, s.Grid.Nx, s.Grid.Nz)
	}
	return
}

// Source returns the buoyancy source field for the current temperature
func (s *Stokes) Source(T *mat.Dense) (S *mat.Dense, err error) {
	switch s.Forcing {
	case TemperatureForcing:
		S = T
		err = s.Grid.CheckShape("temperature", T)
	case DensityForcing:
		S = s.DensityAnomaly
		err = s.Grid.CheckShape("density anomaly", s.DensityAnomaly)
	default:
		err = fmt.Errorf("%w: unknown forcing type %d", types.ErrConfiguration, s.Forcing)
	}
	return
}

// Solution holds one Stokes solve: the raw unknown vector, the staggered
// fields with ghosts removed and the same fields interpolated to base nodes.
type Solution struct {
	X               []float64
	Staggered, Base Fields
}

// Solve assembles and solves the Stokes system for temperature T
func (s *Stokes) Solve(T *mat.Dense) (sol *Solution, err error) {
	var (
		sys *System
		x   []float64
	)
	if sys, err = s.Assemble(T); err != nil {
		return
	}
	solver := s.Solver
	if solver == nil {
		solver = utils.NewDefaultSolver()
	}
	if x, err = solver.Solve(sys.A, sys.B); err != nil {
		err = fmt.Errorf("stokes solve on %s grid: %w", s.Grid, err)
		return
	}
	sol = &Solution{X: x}
	if sol.Staggered, err = ExtractFields(s.Grid, x); err != nil {
		return
	}
	sol.Base = InterpolateToBase(s.Grid, sol.Staggered)
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithFields(log.Fields{
			"solver": solver,
			"vxmax":  utils.MaxAbsField(sol.Base.Vx),
			"vzmax":  utils.MaxAbsField(sol.Base.Vz),
		}).Debug("stokes solve complete")
	}
	return
}
