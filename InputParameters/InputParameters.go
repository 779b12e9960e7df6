package InputParameters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"gopkg.in/ini.v1"

	"github.com/notargets/gomantle/model_problems/Convection2D"
)

// Parameters obtained from the YAML or INI input file
type InputParameters2D struct {
	Title         string                      `json:"Title"`
	Width         float64                     `json:"Width"`  // Non dimensional domain width
	Height        float64                     `json:"Height"` // Non dimensional domain height
	Dx            float64                     `json:"Dx"`
	Dz            float64                     `json:"Dz"`
	BC            string                      `json:"BC"`
	Forcing       string                      `json:"Forcing"`
	InitType      string                      `json:"InitType"`
	FinalTimeMyr  float64                     `json:"FinalTimeMyr"`
	MaxIterations int                         `json:"MaxIterations"`
	PlotSteps     int                         `json:"PlotSteps"`
	ProcLimit     int                         `json:"ProcLimit"`
	Physics       Convection2D.PhysicalParams `json:"Physics"`
}

// NewInputParameters2D returns the reference upper mantle model, input files
// only need to carry what differs from it
func NewInputParameters2D() *InputParameters2D {
	return &InputParameters2D{
		Title:        "Upper mantle convection",
		Width:        1,
		Height:       1,
		Dx:           0.015,
		Dz:           0.015,
		BC:           "FreeSlip",
		Forcing:      "Temperature",
		InitType:     "Layered",
		FinalTimeMyr: 5,
		PlotSteps:    100,
		Physics:      Convection2D.DefaultPhysicalParams(),
	}
}

func (ip *InputParameters2D) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// ParseINI reads the deck from the sections [model], [grid], [run] and
// [physics]. Missing keys keep their current value.
func (ip *InputParameters2D) ParseINI(data []byte) (err error) {
	var (
		file *ini.File
	)
	if file, err = ini.Load(data); err != nil {
		return
	}
	model := file.Section("model")
	ip.Title = model.Key("Title").MustString(ip.Title)
	ip.BC = model.Key("BC").MustString(ip.BC)
	ip.Forcing = model.Key("Forcing").MustString(ip.Forcing)
	ip.InitType = model.Key("InitType").MustString(ip.InitType)

	grid := file.Section("grid")
	ip.Width = grid.Key("Width").MustFloat64(ip.Width)
	ip.Height = grid.Key("Height").MustFloat64(ip.Height)
	ip.Dx = grid.Key("Dx").MustFloat64(ip.Dx)
	ip.Dz = grid.Key("Dz").MustFloat64(ip.Dz)

	run := file.Section("run")
	ip.FinalTimeMyr = run.Key("FinalTimeMyr").MustFloat64(ip.FinalTimeMyr)
	ip.MaxIterations = run.Key("MaxIterations").MustInt(ip.MaxIterations)
	ip.PlotSteps = run.Key("PlotSteps").MustInt(ip.PlotSteps)
	ip.ProcLimit = run.Key("ProcLimit").MustInt(ip.ProcLimit)

	phys := file.Section("physics")
	pp := &ip.Physics
	pp.Kappa = phys.Key("Kappa").MustFloat64(pp.Kappa)
	pp.Tm = phys.Key("Tm").MustFloat64(pp.Tm)
	pp.Tlab = phys.Key("Tlab").MustFloat64(pp.Tlab)
	pp.G = phys.Key("G").MustFloat64(pp.G)
	pp.Alpha = phys.Key("Alpha").MustFloat64(pp.Alpha)
	pp.HDim = phys.Key("HDim").MustFloat64(pp.HDim)
	pp.Eta = phys.Key("Eta").MustFloat64(pp.Eta)
	pp.Rho = phys.Key("Rho").MustFloat64(pp.Rho)
	return
}

// ReadFile loads a deck over the defaults, files ending in .ini are read as
// INI and everything else as YAML
func ReadFile(path string) (ip *InputParameters2D, err error) {
	var (
		data []byte
	)
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	ip = NewInputParameters2D()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini":
		err = ip.ParseINI(data)
	default:
		err = ip.Parse(data)
	}
	if err != nil {
		err = fmt.Errorf("reading input file %s: %w", path, err)
		ip = nil
	}
	return
}

func (ip *InputParameters2D) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%8.5f x %8.5f\t= Domain Width x Height\n", ip.Width, ip.Height)
	fmt.Printf("%8.5f x %8.5f\t= Dx x Dz\n", ip.Dx, ip.Dz)
	fmt.Printf("[%s]\t\t= BC\n", ip.BC)
	fmt.Printf("[%s]\t\t= Forcing\n", ip.Forcing)
	fmt.Printf("[%s]\t\t= InitType\n", ip.InitType)
	fmt.Printf("%8.5f\t\t= FinalTime (Myr)\n", ip.FinalTimeMyr)
	fmt.Printf("[%d]\t\t\t= MaxIterations\n", ip.MaxIterations)
	fmt.Printf("[%d]\t\t\t= PlotSteps\n", ip.PlotSteps)
	if ip.ProcLimit != 0 {
		fmt.Printf("[%d]\t\t\t= ProcLimit\n", ip.ProcLimit)
	}
	ip.Physics.Print()
}

var ExampleYAML = `
Title: "Upper mantle convection"
Width: 1.0
Height: 1.0
Dx: 0.015
Dz: 0.015
BC: FreeSlip        # FreeSlip or NoSlip
Forcing: Temperature # Temperature or Density
InitType: Layered   # Layered or Uniform
FinalTimeMyr: 5
MaxIterations: 0    # 0 runs to FinalTimeMyr
PlotSteps: 100
Physics:
  Kappa: 1.0e-6
  Tm: 1650
  Tlab: 1350
  G: 9.81
  Alpha: 3.0e-5
  HDim: 1.0e6
  Eta: 1.0e22
  Rho: 3400
`
