package Convection2D

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/geometry2D"
	"github.com/notargets/gomantle/model_problems/Stokes2D"
	"github.com/notargets/gomantle/types"
	"github.com/notargets/gomantle/utils"
)

// Snapshot is the state after one completed iteration. All fields are
// on the base grid and are never modified after the snapshot is taken.
type Snapshot struct {
	Iteration     int
	Time, TimeMyr float64
	Dt            float64
	T             *mat.Dense
	Vx, Vz, P     *mat.Dense
	Topography    []float64
}

// SnapshotHandler consumes snapshots; a returned error stops the run
type SnapshotHandler func(s *Snapshot) error

/*
Convection couples the Stokes solve to the thermal advection diffusion of
the temperature field. Each iteration:

  - solves Stokes for the current T
  - derives topography and a Courant limited dt from the new flow
  - advances T into a new field and restores the fixed top and bottom rows

The run ends once Time reaches FinalTime or Iteration reaches MaxIterations.
A zero value for either disables that bound.
*/
type Convection struct {
	Grid           *geometry2D.Grid
	Stokes         *Stokes2D.Stokes
	Phys           PhysicalParams
	FinalTime      float64 // Non dimensional
	MaxIterations  int
	PlotSteps      int // Snapshot cadence in iterations, the last iteration is always reported
	ParallelDegree int
	Partitions     *utils.PartitionMap // Over the Nz-2 rows updated by AdvectDiffuse
	AfterStep      func(c *Convection) // Optional, called after every completed iteration
	// Solution state
	T                 *mat.Dense
	TopRow, BottomRow []float64 // Dirichlet values taken from the initial field
	Time              float64
	Iteration         int
	State             types.RunState
}

func NewConvection(stk *Stokes2D.Stokes, pp PhysicalParams, T0 *mat.Dense,
	FinalTime float64, MaxIterations, PlotSteps, ProcLimit int) (c *Convection, err error) {
	if stk == nil || stk.Grid == nil {
		err = fmt.Errorf("%w: convection needs a Stokes problem with a grid", types.ErrConfiguration)
		return
	}
	var (
		g = stk.Grid
	)
	if err = pp.Validate(); err != nil {
		return
	}
	if !(stk.Ra > 0) {
		err = fmt.Errorf("%w: Rayleigh number must be positive, have %g", types.ErrConfiguration, stk.Ra)
		return
	}
	if g.Nx < 3 || g.Nz < 3 {
		err = fmt.Errorf("%w: convection needs at least 3x3 nodes, have %dx%d",
			types.ErrConfiguration, g.Nx, g.Nz)
		return
	}
	if err = g.CheckShape("initial temperature", T0); err != nil {
		return
	}
	if utils.IsNan(T0) {
		err = fmt.Errorf("%w: initial temperature contains non finite values", types.ErrNumericalDivergence)
		return
	}
	if FinalTime <= 0 && MaxIterations <= 0 {
		err = fmt.Errorf("%w: need a final time or a maximum iteration count to stop the run",
			types.ErrConfiguration)
		return
	}
	c = &Convection{
		Grid:          g,
		Stokes:        stk,
		Phys:          pp,
		FinalTime:     FinalTime,
		MaxIterations: MaxIterations,
		PlotSteps:     PlotSteps,
		T:             mat.DenseCopyOf(T0),
		State:         types.Running,
	}
	c.TopRow = append([]float64{}, c.T.RawRowView(0)...)
	c.BottomRow = append([]float64{}, c.T.RawRowView(g.Nz-1)...)
	c.SetParallelDegree(ProcLimit)
	return
}

func (c *Convection) SetParallelDegree(ProcLimit int) {
	c.ParallelDegree = utils.ParallelDegree(ProcLimit, c.Grid.Nz-2)
	c.Partitions = utils.NewPartitionMap(c.ParallelDegree, c.Grid.Nz-2)
	c.Stokes.ParallelDegree = ProcLimit
}

func (c *Convection) CheckIfFinished() (finished bool) {
	if (c.FinalTime > 0 && c.Time >= c.FinalTime) ||
		(c.MaxIterations > 0 && c.Iteration >= c.MaxIterations) {
		finished = true
	}
	return
}

func (c *Convection) wrap(err error) error {
	c.State = types.Stopped
	return &types.SimulationError{Iteration: c.Iteration, Time: c.Time, Err: err}
}

// Step performs one full iteration. On error the run is stopped and the
// state is left as it was before the step.
func (c *Convection) Step() (snap *Snapshot, err error) {
	var (
		g   = c.Grid
		sol *Stokes2D.Solution
	)
	if c.State == types.Stopped {
		err = c.wrap(fmt.Errorf("step called on a stopped simulation"))
		return
	}
	if sol, err = c.Stokes.Solve(c.T); err != nil {
		err = c.wrap(err)
		return
	}
	var (
		vx, vz, p         = sol.Base.Vx, sol.Base.Vz, sol.Base.P
		topo              = Topography(g, p, vz, c.Phys, c.Stokes.Ra)
		dt, dtAdv, dtDiff = CourantTimestep(g, vx, vz)
		Tn                = AdvectDiffuse(g, c.T, vx, vz, dt, c.Partitions)
	)
	Tn.SetRow(0, c.TopRow)
	Tn.SetRow(g.Nz-1, c.BottomRow)
	if utils.IsNan(Tn) {
		err = c.wrap(fmt.Errorf("%w: temperature update with dt = %g", types.ErrNumericalDivergence, dt))
		return
	}
	c.T = Tn
	c.Time += dt
	c.Iteration++
	if c.CheckIfFinished() {
		c.State = types.Stopped
	}
	snap = &Snapshot{
		Iteration:  c.Iteration,
		Time:       c.Time,
		TimeMyr:    c.Phys.ToMyr(c.Time),
		Dt:         dt,
		T:          Tn,
		Vx:         vx,
		Vz:         vz,
		P:          p,
		Topography: topo,
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithFields(log.Fields{
			"iteration": c.Iteration,
			"dt":        dt,
			"dt_adv":    dtAdv,
			"dt_diff":   dtDiff,
		}).Debug("step complete")
	}
	return
}

// Run steps until the simulation stops, handing a snapshot to handler every
// PlotSteps iterations and on the last one. The context is only checked
// between iterations.
func (c *Convection) Run(ctx context.Context, handler SnapshotHandler) (err error) {
	var (
		snap    *Snapshot
		elapsed time.Duration
	)
	c.PrintInitialization()
	for c.State == types.Running {
		if err = ctx.Err(); err != nil {
			return c.wrap(err)
		}
		start := time.Now()
		if snap, err = c.Step(); err != nil {
			return
		}
		elapsed += time.Since(start)
		if c.AfterStep != nil {
			c.AfterStep(c)
		}
		report := c.State == types.Stopped || (c.PlotSteps > 0 && c.Iteration%c.PlotSteps == 0)
		if !report {
			continue
		}
		c.PrintUpdate(snap)
		if handler != nil {
			if err = handler(snap); err != nil {
				return c.wrap(fmt.Errorf("snapshot handler: %w", err))
			}
		}
	}
	c.PrintFinal(elapsed)
	return
}

func (c *Convection) PrintInitialization() {
	log.WithFields(log.Fields{
		"grid":           c.Grid.String(),
		"bc":             c.Stokes.BC.String(),
		"forcing":        c.Stokes.Forcing.Print(),
		"Ra":             c.Stokes.Ra,
		"final_time":     c.FinalTime,
		"final_time_myr": c.Phys.ToMyr(c.FinalTime),
		"max_iterations": c.MaxIterations,
		"parallel":       c.ParallelDegree,
	}).Info("starting mantle convection run")
}

func (c *Convection) PrintUpdate(s *Snapshot) {
	log.WithFields(log.Fields{
		"iteration": s.Iteration,
		"time":      fmt.Sprintf("%11.4e", s.Time),
		"myr":       fmt.Sprintf("%8.3f", s.TimeMyr),
		"dt":        fmt.Sprintf("%11.4e", s.Dt),
		"vxmax":     fmt.Sprintf("%11.4e", utils.MaxAbsField(s.Vx)),
		"vzmax":     fmt.Sprintf("%11.4e", utils.MaxAbsField(s.Vz)),
		"Tmean":     fmt.Sprintf("%8.5f", utils.FieldMean(s.T)),
	}).Info("update")
}

func (c *Convection) PrintFinal(elapsed time.Duration) {
	if c.Iteration == 0 {
		return
	}
	rate := float64(elapsed.Microseconds()) / float64(c.Grid.Nx*c.Grid.Nz*c.Iteration)
	log.WithFields(log.Fields{
		"iterations": c.Iteration,
		"elapsed":    elapsed.String(),
		"rate":       fmt.Sprintf("%8.5f us/(node*iteration)", rate),
		"memory":     utils.GetMemUsage(),
	}).Info("run complete")
}
