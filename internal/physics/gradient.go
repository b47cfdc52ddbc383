package physics

// Gradient writes ∂H/∂z at the cell centres into dst, using the ghost
// half-cell differences at both boundaries.
func Gradient(h []float64, riv, aq, dz float64, dst []float64) {
	n := len(h)
	dst[0] = 2 * (h[1] - riv) / (3 * dz)
	for i := 1; i < n-1; i++ {
		dst[i] = (h[i+1] - h[i-1]) / (2 * dz)
	}
	dst[n-1] = 2 * (aq - h[n-2]) / (3 * dz)
}

// DarcyFlux writes the specific discharge q = -K·∂H/∂z into dst. Rows
// touched by a layer interface use a one-sided difference across the
// boundary with the interface conductivity, so the flux stays continuous.
func DarcyFlux(h, grad []float64, p *Properties, ifaces []Interface, dz float64, dst []float64) {
	for i := range dst {
		dst[i] = -p.K[i] * grad[i]
	}
	for _, f := range ifaces {
		r := f.Row
		if f.Coincident {
			up := -p.K[r-1] * (h[r] - h[r-1]) / dz
			down := -p.K[r+1] * (h[r+1] - h[r]) / dz
			dst[r] = (up + down) / 2
			continue
		}
		q := -Keq(f.X, p.K[r], p.K[r+1]) * (h[r+1] - h[r]) / dz
		dst[r] = q
		dst[r+1] = q
	}
}

// ConductiveFlux writes λm·∂T/∂z into dst. The end cells reuse the
// gradient of their inner neighbour.
func ConductiveFlux(t []float64, p *Properties, dz float64, dst []float64) {
	n := len(t)
	for i := 1; i < n-1; i++ {
		dst[i] = p.LambdaM[i] * (t[i+1] - t[i-1]) / (2 * dz)
	}
	dst[0] = p.LambdaM[0] * (t[2] - t[0]) / (2 * dz)
	dst[n-1] = p.LambdaM[n-1] * (t[n-1] - t[n-3]) / (2 * dz)
}
