package physics

import "github.com/san-kum/streamheat/internal/tridiag"

// HeatSystem holds the operators of the advection-diffusion equation.
// It is rebuilt every step since the advection term follows ∇H.
type HeatSystem struct {
	A, B  tridiag.Matrix
	C     []float64
	Alpha float64
}

func NewHeatSystem(n int, alpha float64) *HeatSystem {
	return &HeatSystem{
		A:     tridiag.NewMatrix(n),
		B:     tridiag.NewMatrix(n),
		C:     make([]float64, n),
		Alpha: alpha,
	}
}

// Build fills A, B and c for a step of length dt with head gradient grad
// and the river and aquifer temperatures at both ends of the step.
func (h *HeatSystem) Build(p *Properties, grad []float64, dz, dt, rivPrev, rivNext, aqPrev, aqNext float64) {
	n := len(p.Ke)
	a := h.Alpha
	b := 1 - a
	dz2 := dz * dz

	for i := 0; i < n; i++ {
		ke := p.Ke[i] / dz2
		adv := p.Ae[i] * grad[i] / (2 * dz)
		hs := p.HeatSource[i]

		h.A.Diag[i] = 1/dt + 2*a*ke - a*hs
		h.B.Diag[i] = 1/dt - 2*b*ke + b*hs
		if i > 0 {
			h.A.Lower[i-1] = -a*ke + a*adv
			h.B.Lower[i-1] = b*ke - b*adv
		}
		if i < n-1 {
			h.A.Upper[i] = -a*ke - a*adv
			h.B.Upper[i] = b*ke + b*adv
		}
	}

	ke0 := p.Ke[0] / dz2
	adv0 := 2 * p.Ae[0] * grad[0] / (3 * dz)
	h.A.Diag[0] = 1/dt + 4*a*ke0 - a*p.HeatSource[0]
	h.B.Diag[0] = 1/dt - 4*b*ke0 + b*p.HeatSource[0]
	h.A.Upper[0] = -4*a*ke0/3 - a*adv0
	h.B.Upper[0] = 4*b*ke0/3 + b*adv0

	ken := p.Ke[n-1] / dz2
	advn := 2 * p.Ae[n-1] * grad[n-1] / (3 * dz)
	h.A.Diag[n-1] = 1/dt + 4*a*ken - a*p.HeatSource[n-1]
	h.B.Diag[n-1] = 1/dt - 4*b*ken + b*p.HeatSource[n-1]
	h.A.Lower[n-2] = -4*a*ken/3 + a*advn
	h.B.Lower[n-2] = 4*b*ken/3 - b*advn

	for i := range h.C {
		h.C[i] = 0
	}
	h.C[0] = (8*a*ke0/3-a*adv0)*rivNext + (8*b*ke0/3-b*adv0)*rivPrev
	h.C[n-1] = (8*a*ken/3+a*advn)*aqNext + (8*b*ken/3+b*advn)*aqPrev
}
