package physics

import "github.com/san-kum/streamheat/internal/tridiag"

// HeadSystem holds the operators of the groundwater flow equation.
type HeadSystem struct {
	A, B  tridiag.Matrix
	C     []float64
	Alpha float64
}

func NewHeadSystem(n int, alpha float64) *HeadSystem {
	return &HeadSystem{
		A:     tridiag.NewMatrix(n),
		B:     tridiag.NewMatrix(n),
		C:     make([]float64, n),
		Alpha: alpha,
	}
}

// Build fills A and B for a step of length dt, then applies the
// interface corrections.
func (h *HeadSystem) Build(p *Properties, ifaces []Interface, dz, dt float64) {
	n := len(p.K)
	a := h.Alpha
	b := 1 - a
	dz2 := dz * dz

	for i := 0; i < n; i++ {
		st := p.Ss[i] / dt
		k := p.K[i] / dz2
		h.A.Diag[i] = st + 2*a*k
		h.B.Diag[i] = st - 2*b*k
		if i > 0 {
			h.A.Lower[i-1] = -a * k
			h.B.Lower[i-1] = b * k
		}
		if i < n-1 {
			h.A.Upper[i] = -a * k
			h.B.Upper[i] = b * k
		}
	}

	k0 := p.K[0] / dz2
	h.A.Diag[0] = p.Ss[0]/dt + 4*a*k0
	h.B.Diag[0] = p.Ss[0]/dt - 4*b*k0
	h.A.Upper[0] = -4 * a * k0 / 3
	h.B.Upper[0] = 4 * b * k0 / 3

	kn := p.K[n-1] / dz2
	h.A.Diag[n-1] = p.Ss[n-1]/dt + 4*a*kn
	h.B.Diag[n-1] = p.Ss[n-1]/dt - 4*b*kn
	h.A.Lower[n-2] = -4 * a * kn / 3
	h.B.Lower[n-2] = 4 * b * kn / 3

	for _, f := range ifaces {
		h.correct(p, f, dz, dt)
	}
}

func (h *HeadSystem) correct(p *Properties, f Interface, dz, dt float64) {
	r := f.Row
	if f.Coincident {
		h.setRow(r, p.Ss[r]/dt, p.K[r-1], p.K[r+1], dz)
		return
	}
	k1, k2 := p.K[r], p.K[r+1]
	keq := Keq(f.X, k1, k2)
	h.setRow(r, p.Ss[r]/dt, k1, keq, dz)
	h.setRow(r+1, p.Ss[r+1]/dt, keq, k2, dz)
}

// setRow couples row r to its upper neighbour with kUp and to its lower
// neighbour with kDown.
func (h *HeadSystem) setRow(r int, st, kUp, kDown, dz float64) {
	a := h.Alpha
	b := 1 - a
	dz2 := dz * dz
	h.A.Diag[r] = st + a*(kUp+kDown)/dz2
	h.B.Diag[r] = st - b*(kUp+kDown)/dz2
	h.A.Lower[r-1] = -a * kUp / dz2
	h.B.Lower[r-1] = b * kUp / dz2
	h.A.Upper[r] = -a * kDown / dz2
	h.B.Upper[r] = b * kDown / dz2
}

// Boundary fills c from the river and aquifer heads at both ends of
// the step, plus the internal source.
func (h *HeadSystem) Boundary(p *Properties, dz, rivPrev, rivNext, aqPrev, aqNext float64) {
	n := len(h.C)
	a := h.Alpha
	copy(h.C, p.Source)
	h.C[0] += 8 * p.K[0] / (3 * dz * dz) * (a*rivNext + (1-a)*rivPrev)
	h.C[n-1] += 8 * p.K[n-1] / (3 * dz * dz) * (a*aqNext + (1-a)*aqPrev)
}
