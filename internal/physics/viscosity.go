package physics

import "math"

// Viscosity maps a temperature in kelvin to a dynamic viscosity in Pa·s.
type Viscosity interface {
	Mu(t float64) float64
}

// ConstantViscosity ignores temperature.
type ConstantViscosity float64

func (c ConstantViscosity) Mu(float64) float64 { return float64(c) }

// ArrheniusViscosity is the empirical fit
// μ = A·exp(B/T + C·T + D·T²) for liquid water.
type ArrheniusViscosity struct{}

const (
	muA = 1.856e-14
	muB = 4209.0
	muC = 0.04527
	muD = -3.376e-5
)

func (ArrheniusViscosity) Mu(t float64) float64 {
	return muA * math.Exp(muB/t+muC*t+muD*t*t)
}

// ViscosityByName resolves a configuration name.
func ViscosityByName(name string) (Viscosity, bool) {
	switch name {
	case "", "constant":
		return ConstantViscosity(DefaultMu), true
	case "arrhenius":
		return ArrheniusViscosity{}, true
	}
	return nil, false
}

// IsConstant reports whether v never depends on temperature.
func IsConstant(v Viscosity) bool {
	_, ok := v.(ConstantViscosity)
	return ok
}
