package tridiag

import "errors"

var (
	// ErrSingular indicates a zero pivot during elimination.
	ErrSingular = errors.New("tridiag: zero pivot")

	// ErrNonFinite indicates the solution contains NaN or Inf.
	ErrNonFinite = errors.New("tridiag: non-finite solution")

	// ErrDimension indicates diagonals of inconsistent length.
	ErrDimension = errors.New("tridiag: dimension mismatch")
)
