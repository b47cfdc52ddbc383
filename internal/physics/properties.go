package physics

import (
	"math"

	"github.com/san-kum/streamheat/internal/column"
)

// Properties holds per-cell coefficients derived from the layer params.
// Slices are allocated once and refilled on every Assign.
type Properties struct {
	Perm       []float64 // intrinsic permeability [m2]
	Mu         []float64
	K          []float64 // hydraulic conductivity [m/s]
	Ss         []float64 // specific storage [1/m]
	Source     []float64 // q_s [1/s]
	RhoMC      []float64 // bulk volumetric heat capacity
	LambdaM    []float64 // bulk thermal conductivity
	Ke         []float64 // effective thermal diffusivity
	Ae         []float64 // advection coefficient
	HeatSource []float64

	// LayerK is the conductivity of each layer, taken at its first cell.
	LayerK []float64
}

func NewProperties(n int) *Properties {
	return &Properties{
		Perm:       make([]float64, n),
		Mu:         make([]float64, n),
		K:          make([]float64, n),
		Ss:         make([]float64, n),
		Source:     make([]float64, n),
		RhoMC:      make([]float64, n),
		LambdaM:    make([]float64, n),
		Ke:         make([]float64, n),
		Ae:         make([]float64, n),
		HeatSource: make([]float64, n),
	}
}

// Assign fills every cell from the layer it belongs to. cellLayer maps
// cells to layers, height is the column height used for Ss, and mu is
// the viscosity per cell.
func (p *Properties) Assign(layers []column.Layer, cellLayer []int, height float64, mu []float64) {
	for k, l := range cellLayer {
		par := layers[l].Params
		n := par.Porosity

		p.Perm[k] = par.Permeability()
		p.Ss[k] = n / height
		p.Source[k] = par.Source
		p.RhoMC[k] = n*RhoW*CW + (1-n)*par.RhoCS
		lm := n*math.Sqrt(LambdaW) + (1-n)*math.Sqrt(par.LambdaS)
		p.LambdaM[k] = lm * lm
		p.Ke[k] = p.LambdaM[k] / p.RhoMC[k]
		p.HeatSource[k] = par.Source * RhoW * CW / p.RhoMC[k]
	}
	p.SetViscosity(mu)

	if cap(p.LayerK) < len(layers) {
		p.LayerK = make([]float64, len(layers))
	}
	p.LayerK = p.LayerK[:len(layers)]
	seen := make([]bool, len(layers))
	for k, l := range cellLayer {
		if !seen[l] {
			p.LayerK[l] = p.K[k]
			seen[l] = true
		}
	}
	for i, l := range layers {
		if !seen[i] {
			p.LayerK[i] = Conductivity(l.Params.Permeability(), p.Mu[0])
		}
	}
}

// SetViscosity refreshes μ and everything that depends on it.
func (p *Properties) SetViscosity(mu []float64) {
	copy(p.Mu, mu)
	for k := range p.K {
		p.K[k] = Conductivity(p.Perm[k], p.Mu[k])
		p.Ae[k] = RhoW * CW * p.K[k] / p.RhoMC[k]
	}
}

// Conductivity converts intrinsic permeability to hydraulic conductivity.
func Conductivity(perm, mu float64) float64 {
	return RhoW * G * perm / mu
}

// FillViscosity evaluates v on a temperature profile.
func FillViscosity(v Viscosity, temp, dst []float64) {
	for k, t := range temp {
		dst[k] = v.Mu(t)
	}
}
