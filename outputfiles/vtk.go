package outputfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/geometry2D"
	"github.com/notargets/gomantle/model_problems/Convection2D"
)

// VTKWriter writes each snapshot as a legacy ASCII VTK structured points file
// named <Prefix>_<iteration>.vtk under Dir, and appends the surface topography
// to <Prefix>_topography.dat, one line per snapshot.
type VTKWriter struct {
	Dir, Prefix string
	Grid        *geometry2D.Grid
}

func NewVTKWriter(dir, prefix string, g *geometry2D.Grid) (w *VTKWriter, err error) {
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	if len(prefix) == 0 {
		prefix = "mantle"
	}
	w = &VTKWriter{Dir: dir, Prefix: prefix, Grid: g}
	// Start a fresh topography series
	err = os.WriteFile(w.TopographyFile(), nil, 0o644)
	return
}

func (w *VTKWriter) FileName(iteration int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("%s_%06d.vtk", w.Prefix, iteration))
}

func (w *VTKWriter) TopographyFile() string {
	return filepath.Join(w.Dir, w.Prefix+"_topography.dat")
}

// Write is a Convection2D.SnapshotHandler
func (w *VTKWriter) Write(s *Convection2D.Snapshot) (err error) {
	var (
		file *os.File
		name = w.FileName(s.Iteration)
	)
	if file, err = os.Create(name); err != nil {
		return
	}
	defer file.Close()
	bw := bufio.NewWriter(file)
	if err = WriteVTK(bw, w.Grid, s); err != nil {
		return
	}
	if err = bw.Flush(); err != nil {
		return
	}
	log.WithFields(log.Fields{"file": name, "myr": s.TimeMyr}).Debug("wrote vtk snapshot")
	return w.appendTopography(s)
}

func (w *VTKWriter) appendTopography(s *Convection2D.Snapshot) (err error) {
	var (
		file *os.File
	)
	if file, err = os.OpenFile(w.TopographyFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err != nil {
		return
	}
	defer file.Close()
	bw := bufio.NewWriter(file)
	fmt.Fprintf(bw, "%d %16.9e", s.Iteration, s.TimeMyr)
	for _, h := range s.Topography {
		fmt.Fprintf(bw, " %16.9e", h)
	}
	fmt.Fprintln(bw)
	return bw.Flush()
}

/*
WriteVTK writes the base grid fields of s. Points run along x first, then
upward from the bottom row, so that y in the file is height above the base of
the box. Scalars T and p are followed by the velocity vector (vx, -vz, 0), the
sign flip turning the downward z of the grid into the upward y of the file.
*/
func WriteVTK(out io.Writer, g *geometry2D.Grid, s *Convection2D.Snapshot) (err error) {
	for _, f := range []*mat.Dense{s.T, s.P, s.Vx, s.Vz} {
		if err = g.CheckShape("vtk output", f); err != nil {
			return
		}
	}
	var (
		Nx, Nz = g.Nx, g.Nz
		ew     = &errWriter{w: out}
	)
	ew.printf("# vtk DataFile Version 2.0\n")
	ew.printf("mantle convection, iteration %d, time %16.9e Myr\n", s.Iteration, s.TimeMyr)
	ew.printf("ASCII\n")
	ew.printf("DATASET STRUCTURED_POINTS\n")
	ew.printf("DIMENSIONS %d %d %d\n", Nx, Nz, 1)
	ew.printf("ORIGIN %16.9e %16.9e %16.9e\n", 0., 0., 0.)
	ew.printf("SPACING %16.9e %16.9e %16.9e\n", g.Dx, g.Dz, 1.)
	ew.printf("\nPOINT_DATA %d\n", Nx*Nz)
	for _, sc := range []struct {
		name string
		f    *mat.Dense
	}{{"T", s.T}, {"p", s.P}} {
		ew.printf("SCALARS %s float\n", sc.name)
		ew.printf("LOOKUP_TABLE default\n")
		for j := Nz - 1; j >= 0; j-- {
			for i := 0; i < Nx; i++ {
				ew.printf("%16.9e\n", sc.f.At(j, i))
			}
		}
	}
	ew.printf("VECTORS velocity float\n")
	for j := Nz - 1; j >= 0; j-- {
		for i := 0; i < Nx; i++ {
			ew.printf("%16.9e %16.9e %16.9e\n", s.Vx.At(j, i), -s.Vz.At(j, i), 0.)
		}
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
