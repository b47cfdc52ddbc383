package sim

import (
	"errors"
	"fmt"
)

// ErrNumericalInstability is wrapped by every SolveError.
var ErrNumericalInstability = errors.New("sim: numerical instability")

// SolveError reports a timestep where both the tridiagonal solve and the
// dense fallback failed.
type SolveError struct {
	Equation string
	Step     int
	Err      error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("sim: %s solve failed at step %d: %v", e.Equation, e.Step, e.Err)
}

func (e *SolveError) Unwrap() []error {
	return []error{ErrNumericalInstability, e.Err}
}
