package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Autocorrelation returns the normalised autocorrelation of x at lags
// 0..maxLag. A constant series has autocorrelation 1 at lag 0 and 0
// elsewhere.
func Autocorrelation(x []float64, maxLag int) []float64 {
	n := len(x)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}
	mean, variance := stat.PopMeanVariance(x, nil)
	rho := make([]float64, maxLag+1)
	rho[0] = 1
	if variance == 0 {
		return rho
	}

	centred := make([]float64, n)
	copy(centred, x)
	floats.AddConst(-mean, centred)
	for lag := 1; lag <= maxLag; lag++ {
		rho[lag] = floats.Dot(centred[:n-lag], centred[lag:]) / (float64(n) * variance)
	}
	return rho
}

// EffectiveSampleSize estimates the number of independent draws in a
// chain using Geyer's initial positive sequence of autocorrelation pairs.
func EffectiveSampleSize(x []float64) float64 {
	n := len(x)
	if n < 4 {
		return float64(n)
	}
	rho := Autocorrelation(x, n-1)
	tau := -1.0
	for k := 0; k+1 < len(rho); k += 2 {
		pair := rho[k] + rho[k+1]
		if pair <= 0 {
			break
		}
		tau += 2 * pair
	}
	if tau < 1 {
		tau = 1
	}
	return float64(n) / tau
}

// ChainESS sums the effective sample size of every chain for each layer
// parameter. samples are indexed [chain][iter][layer][param].
func ChainESS(samples [][][][]float64) [][]float64 {
	if len(samples) == 0 || len(samples[0]) == 0 {
		return nil
	}
	n := len(samples[0])
	nl := len(samples[0][0])
	series := make([]float64, n)

	out := make([][]float64, nl)
	for l := 0; l < nl; l++ {
		np := len(samples[0][0][l])
		out[l] = make([]float64, np)
		for p := 0; p < np; p++ {
			for _, ch := range samples {
				for i := range series {
					series[i] = ch[i][l][p]
				}
				out[l][p] += EffectiveSampleSize(series)
			}
		}
	}
	return out
}
