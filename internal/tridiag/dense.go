package tridiag

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DenseSolve assembles the full matrix and solves it by LU factorisation.
// It is the fallback when the Thomas elimination fails. A singular or
// numerically singular matrix (any mat.Condition report) is an
// ErrSingular failure.
func DenseSolve(a, b, c, d, x []float64) error {
	if err := checkDims(a, b, c, d, x); err != nil {
		return err
	}
	n := len(b)
	if n == 0 {
		return nil
	}

	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, b[i])
		if i > 0 {
			m.Set(i, i-1, a[i-1])
		}
		if i < n-1 {
			m.Set(i, i+1, c[i])
		}
	}

	var sol mat.VecDense
	if err := sol.SolveVec(m, mat.NewVecDense(n, append([]float64(nil), d...))); err != nil {
		var cond mat.Condition
		switch {
		case errors.As(err, &cond):
			return fmt.Errorf("%w: condition number %g", ErrSingular, float64(cond))
		case errors.Is(err, mat.ErrSingular):
			return fmt.Errorf("%w: %v", ErrSingular, err)
		default:
			return fmt.Errorf("tridiag: dense solve: %w", err)
		}
	}

	for i := 0; i < n; i++ {
		x[i] = sol.AtVec(i)
		if !isFinite(x[i]) {
			return ErrNonFinite
		}
	}
	return nil
}
