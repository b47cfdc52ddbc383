package physics

const (
	LambdaW     = 0.6071 // water thermal conductivity [W/m/K]
	RhoW        = 1000.0 // water density [kg/m3]
	CW          = 4185.0 // water specific heat [J/kg/K]
	G           = 9.81
	ZeroCelsius = 273.15

	// Alpha is the default θ-scheme weight of the implicit part
	// (Crank-Nicolson). Weights below MinAlpha are only conditionally
	// stable and diverge on stiff storage terms.
	Alpha    = 0.5
	MinAlpha = 0.5

	// MuUpdateEvery is the number of timesteps between viscosity refreshes.
	MuUpdateEvery = 96

	Epsilon = 1e-10

	// DefaultMu is the dynamic viscosity of water near 20°C [Pa·s].
	DefaultMu = 1e-3
)
