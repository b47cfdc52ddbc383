// Package tridiag solves and applies tridiagonal systems.
//
// A system of size n is described by three slices:
//
//   - a: sub-diagonal, len n-1 (a[i] sits at row i+1, column i)
//   - b: main diagonal, len n
//   - c: super-diagonal, len n-1 (c[i] sits at row i, column i+1)
//
// [Solver] runs the Thomas algorithm with preallocated scratch so the
// per-timestep hot loop does not allocate. [DenseSolve] is the slower LU
// path used when the Thomas elimination breaks down.
//
//	var s tridiag.Solver
//	tridiag.Product(a, b, c, x, d)
//	if err := s.Solve(a, b, c, d, x); err != nil {
//	    err = tridiag.DenseSolve(a, b, c, d, x)
//	}
//
// The Thomas algorithm does not pivot. Callers are expected to pass
// diagonally dominant systems, which the finite-difference stencils of
// the physics package produce.
package tridiag
