package physics

// SteadyHead writes into dst the steady head at depths z for a stack of
// layers with bottom depths zLows and conductivities k, between htop at
// the surface and hbot at the bottom. Each layer carries the same Darcy
// flux, so the head is piecewise linear.
func SteadyHead(z, zLows, k []float64, htop, hbot float64, dst []float64) {
	resistance := 0.0
	prev := 0.0
	for i, zl := range zLows {
		resistance += (zl - prev) / k[i]
		prev = zl
	}
	q := (htop - hbot) / resistance

	l := 0
	top := 0.0
	htopLayer := htop
	for i, zi := range z {
		for l < len(zLows)-1 && zi > zLows[l] {
			htopLayer -= q / k[l] * (zLows[l] - top)
			top = zLows[l]
			l++
		}
		dst[i] = htopLayer - q/k[l]*(zi-top)
	}
}
