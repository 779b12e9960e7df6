/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/gosuri/uiprogress"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gomantle/InputParameters"
	"github.com/notargets/gomantle/geometry2D"
	"github.com/notargets/gomantle/model_problems/Convection2D"
	"github.com/notargets/gomantle/model_problems/Stokes2D"
	"github.com/notargets/gomantle/outputfiles"
	"github.com/notargets/gomantle/server"
	"github.com/notargets/gomantle/types"
)

type ModelConvect struct {
	ICFile        string
	Serve         string // Address for the websocket snapshot server
	VTKDir        string
	Progress      bool
	Profile       bool
	Perf          bool
	MaxIterations int // Overrides the input file when positive
	PlotSteps     int // Overrides the input file when positive
	ProcLimit     int // Overrides the input file when positive
}

// ConvectCmd represents the convect command
var ConvectCmd = &cobra.Command{
	Use:   "convect",
	Short: "Run the mantle convection model",
	Long: `Run the mantle convection model described by an input file (YAML, or INI
when the file name ends in .ini). Snapshots can be written as VTK files and
streamed to websocket clients as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
			ip  *InputParameters.InputParameters2D
		)
		mc := &ModelConvect{
			ICFile:        viper.GetString("inputConditionsFile"),
			Serve:         viper.GetString("serve"),
			VTKDir:        viper.GetString("vtkDir"),
			Progress:      viper.GetBool("progress"),
			Profile:       viper.GetBool("profile"),
			Perf:          viper.GetBool("perf"),
			MaxIterations: viper.GetInt("maxIterations"),
			PlotSteps:     viper.GetInt("plotSteps"),
			ProcLimit:     viper.GetInt("procLimit"),
		}
		if ip, err = processInput(mc); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		ip.Print()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err = RunConvect(ctx, mc, ip); err != nil {
			log.WithError(err).Error("run failed")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(ConvectCmd)
	fl := ConvectCmd.Flags()
	fl.StringP("inputConditionsFile", "I", "", "YAML or INI file for input parameters like:\n\t- grid spacing\n\t- boundary condition\n\t- final time in Myr")
	fl.StringP("serve", "w", "", "address to stream snapshots to websocket clients on /ws, e.g. :8080 (browser pages must share the origin)")
	fl.StringP("vtkDir", "o", "", "directory to write VTK snapshots into")
	fl.BoolP("progress", "p", false, "display a progress bar")
	fl.Bool("profile", false, "write a CPU profile to the current directory")
	fl.Bool("perf", false, "count CPU instructions used by the run (linux only)")
	fl.IntP("maxIterations", "n", 0, "maximum number of iterations, overrides the input file")
	fl.IntP("plotSteps", "s", 0, "number of iterations between snapshots, overrides the input file")
	fl.IntP("procLimit", "j", 0, "maximum number of go routines, overrides the input file")
	for _, name := range []string{"inputConditionsFile", "serve", "vtkDir", "progress", "profile", "perf",
		"maxIterations", "plotSteps", "procLimit"} {
		_ = viper.BindPFlag(name, fl.Lookup(name))
	}
}

func processInput(mc *ModelConvect) (ip *InputParameters.InputParameters2D, err error) {
	if len(mc.ICFile) == 0 {
		fmt.Printf("no input file (-I, --inputConditionsFile), running the reference model\n")
		fmt.Printf("Example File:%s\n", InputParameters.ExampleYAML)
		ip = InputParameters.NewInputParameters2D()
	} else if ip, err = InputParameters.ReadFile(mc.ICFile); err != nil {
		return
	}
	if mc.MaxIterations > 0 {
		ip.MaxIterations = mc.MaxIterations
	}
	if mc.PlotSteps > 0 {
		ip.PlotSteps = mc.PlotSteps
	}
	if mc.ProcLimit > 0 {
		ip.ProcLimit = mc.ProcLimit
	}
	return
}

// NewModel builds the grid, the Stokes problem, the initial temperature and
// the time stepping driver described by ip
func NewModel(ip *InputParameters.InputParameters2D) (c *Convection2D.Convection, err error) {
	var (
		g   *geometry2D.Grid
		bc  types.BCFLAG
		ft  Stokes2D.ForcingType
		it  Convection2D.InitType
		stk *Stokes2D.Stokes
		pp  = ip.Physics
	)
	if g, err = geometry2D.NewGrid(ip.Width, ip.Height, ip.Dx, ip.Dz); err != nil {
		return
	}
	if bc, err = types.NewBCFLAG(ip.BC); err != nil {
		return
	}
	if ft, err = Stokes2D.NewForcingType(ip.Forcing); err != nil {
		return
	}
	if it, err = Convection2D.NewInitType(ip.InitType); err != nil {
		return
	}
	if err = pp.Validate(); err != nil {
		return
	}
	if stk, err = Stokes2D.NewStokes(g, bc, pp.Rayleigh()); err != nil {
		return
	}
	stk.Forcing = ft
	if ft == Stokes2D.DensityForcing {
		stk.DensityAnomaly = Convection2D.DensityAnomaly(g)
	}
	T0, err := Convection2D.InitialTemperature(g, pp, it)
	if err != nil {
		return
	}
	c, err = Convection2D.NewConvection(stk, pp, T0, pp.ToNondimensionalTime(ip.FinalTimeMyr),
		ip.MaxIterations, ip.PlotSteps, ip.ProcLimit)
	return
}

func RunConvect(ctx context.Context, mc *ModelConvect, ip *InputParameters.InputParameters2D) (err error) {
	var (
		c        *Convection2D.Convection
		handlers []Convection2D.SnapshotHandler
	)
	if c, err = NewModel(ip); err != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if len(mc.VTKDir) != 0 {
		var w *outputfiles.VTKWriter
		if w, err = outputfiles.NewVTKWriter(mc.VTKDir, "mantle", c.Grid); err != nil {
			return
		}
		handlers = append(handlers, w.Write)
	}
	if len(mc.Serve) != 0 {
		hub := server.NewHub()
		go func() {
			if err := server.Serve(ctx, mc.Serve, hub); err != nil {
				log.WithError(err).Error("snapshot server")
			}
		}()
		handlers = append(handlers, hub.Publish)
	}
	if mc.Progress {
		defer attachProgress(c)()
	}
	if mc.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}
	run := func() error { return c.Run(ctx, fanOut(handlers...)) }
	if mc.Perf {
		return countInstructions(run)
	}
	return run()
}

// fanOut calls each handler in turn, stopping at the first error
func fanOut(handlers ...Convection2D.SnapshotHandler) Convection2D.SnapshotHandler {
	if len(handlers) == 0 {
		return nil
	}
	return func(s *Convection2D.Snapshot) (err error) {
		for _, h := range handlers {
			if err = h(s); err != nil {
				return
			}
		}
		return
	}
}

// attachProgress drives a progress bar from the driver's AfterStep hook. The
// bar tracks whichever stopping bound is closer to being reached.
func attachProgress(c *Convection2D.Convection) (stop func()) {
	const total = 1000
	var (
		label atomic.Value
	)
	label.Store(fmt.Sprintf("%8.3f Myr", 0.))
	uiprogress.Start()
	bar := uiprogress.AddBar(total).AppendCompleted().PrependElapsed()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return label.Load().(string)
	})
	c.AfterStep = func(c *Convection2D.Convection) {
		label.Store(fmt.Sprintf("%8.3f Myr", c.Phys.ToMyr(c.Time)))
		_ = bar.Set(progressCount(c, total))
	}
	return uiprogress.Stop
}

func progressCount(c *Convection2D.Convection, total int) int {
	var frac float64
	if c.FinalTime > 0 {
		frac = c.Time / c.FinalTime
	}
	if c.MaxIterations > 0 {
		frac = math.Max(frac, float64(c.Iteration)/float64(c.MaxIterations))
	}
	return int(math.Min(frac, 1) * float64(total))
}
