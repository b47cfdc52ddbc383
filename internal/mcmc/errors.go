package mcmc

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceExceeded indicates the trajectory would not fit the memory budget.
	ErrResourceExceeded = errors.New("mcmc: memory budget exceeded")

	// ErrNoValidStart indicates a chain found no solvable initial sample.
	ErrNoValidStart = errors.New("mcmc: no valid initial sample")
)

// ResourceError reports the estimated storage of a run over budget and a
// subsampling cadence that would fit, or zero if none does.
type ResourceError struct {
	Estimate  int64
	Budget    int64
	Suggested int
}

func (e *ResourceError) Error() string {
	msg := fmt.Sprintf("mcmc: estimated %d MiB exceeds budget of %d MiB", e.Estimate>>20, e.Budget>>20)
	if e.Suggested > 0 {
		msg += fmt.Sprintf(" (try subsample_iter=%d)", e.Suggested)
	}
	return msg
}

func (e *ResourceError) Unwrap() error {
	return ErrResourceExceeded
}
