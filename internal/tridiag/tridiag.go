package tridiag

import "math"

// Solver holds the forward-sweep scratch of the Thomas algorithm.
// The zero value is ready to use. A Solver is not safe for concurrent use.
type Solver struct {
	cp, dp []float64
}

func NewSolver(n int) *Solver {
	s := &Solver{}
	s.ensureScratch(n)
	return s
}

func (s *Solver) ensureScratch(n int) {
	if len(s.cp) != n {
		s.cp = make([]float64, n)
		s.dp = make([]float64, n)
	}
}

// Solve writes the solution of M·x = d into x.
func (s *Solver) Solve(a, b, c, d, x []float64) error {
	n := len(b)
	if err := checkDims(a, b, c, d, x); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	s.ensureScratch(n)

	if b[0] == 0 {
		return ErrSingular
	}
	if n == 1 {
		x[0] = d[0] / b[0]
		if !isFinite(x[0]) {
			return ErrNonFinite
		}
		return nil
	}

	cp, dp := s.cp, s.dp
	cp[0] = c[0] / b[0]
	dp[0] = d[0] / b[0]
	for i := 1; i < n; i++ {
		m := b[i] - a[i-1]*cp[i-1]
		if m == 0 {
			return ErrSingular
		}
		if i < n-1 {
			cp[i] = c[i] / m
		}
		dp[i] = (d[i] - a[i-1]*dp[i-1]) / m
	}

	x[n-1] = dp[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = dp[i] - cp[i]*x[i+1]
	}

	for _, v := range x {
		if !isFinite(v) {
			return ErrNonFinite
		}
	}
	return nil
}

// Solve is the allocating convenience form of (*Solver).Solve.
func Solve(a, b, c, d []float64) ([]float64, error) {
	x := make([]float64, len(b))
	var s Solver
	if err := s.Solve(a, b, c, d, x); err != nil {
		return nil, err
	}
	return x, nil
}

// Product writes M·x into d. The first and last rows only carry two
// entries each, so the asymmetric ghost-cell coefficients stored in
// c[0] and a[n-2] are applied as given.
func Product(a, b, c, x, d []float64) {
	n := len(b)
	switch n {
	case 0:
		return
	case 1:
		d[0] = b[0] * x[0]
		return
	}

	d[0] = b[0]*x[0] + c[0]*x[1]
	for i := 1; i < n-1; i++ {
		d[i] = a[i-1]*x[i-1] + b[i]*x[i] + c[i]*x[i+1]
	}
	d[n-1] = a[n-2]*x[n-2] + b[n-1]*x[n-1]
}

func checkDims(a, b, c, d, x []float64) error {
	n := len(b)
	if n == 0 {
		return nil
	}
	if len(a) != n-1 || len(c) != n-1 || len(d) != n || len(x) != n {
		return ErrDimension
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Matrix stores the three diagonals of an n×n tridiagonal matrix.
type Matrix struct {
	Lower []float64
	Diag  []float64
	Upper []float64
}

func NewMatrix(n int) Matrix {
	m := n - 1
	if m < 0 {
		m = 0
	}
	return Matrix{
		Lower: make([]float64, m),
		Diag:  make([]float64, n),
		Upper: make([]float64, m),
	}
}

func (m Matrix) Size() int { return len(m.Diag) }

// Mul writes m·x into d.
func (m Matrix) Mul(x, d []float64) {
	Product(m.Lower, m.Diag, m.Upper, x, d)
}

// SolveMatrix writes the solution of m·x = d into x.
func (s *Solver) SolveMatrix(m Matrix, d, x []float64) error {
	return s.Solve(m.Lower, m.Diag, m.Upper, d, x)
}

// DenseSolveMatrix is DenseSolve for a Matrix.
func DenseSolveMatrix(m Matrix, d, x []float64) error {
	return DenseSolve(m.Lower, m.Diag, m.Upper, d, x)
}
