package types

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration covers grids too small to hold interior points and
	// arrays whose shape does not match the grid.
	ErrConfiguration = errors.New("configuration error")

	// ErrSingularSystem is returned when the Stokes operator cannot be factored
	// or the factored solve fails its residual check.
	ErrSingularSystem = errors.New("singular system")

	// ErrNumericalDivergence marks non-finite values in a solution or in the
	// updated temperature field.
	ErrNumericalDivergence = errors.New("numerical divergence")
)

// SimulationError carries enough of the run state to reproduce a failure.
type SimulationError struct {
	Iteration int
	Time      float64
	Err       error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("iteration %d, time %g: %v", e.Iteration, e.Time, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

type RunState uint8

const (
	Running RunState = iota
	Stopped
)

func (rs RunState) String() string {
	if rs == Running {
		return "Running"
	}
	return "Stopped"
}
