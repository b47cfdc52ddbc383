package analysis

import (
	"math"

	"github.com/san-kum/streamheat/internal/column"
	"gonum.org/v1/gonum/stat"
)

// DegenerateRHat is reported when the within-chain variance vanishes.
const DegenerateRHat = 2.0

const minWithinVariance = 1e-12

// GelmanRubin returns R̂ indexed [layer][param] for samples indexed
// [chain][iter][layer][param]. It needs at least one chain with one
// iteration; fewer than two iterations give DegenerateRHat everywhere.
func GelmanRubin(samples [][][][]float64) [][]float64 {
	m := len(samples)
	if m == 0 || len(samples[0]) == 0 {
		return nil
	}
	n := len(samples[0])
	nl := len(samples[0][0])

	series := make([]float64, n)
	means := make([]float64, m)
	vars := make([]float64, m)

	out := make([][]float64, nl)
	for l := 0; l < nl; l++ {
		np := len(samples[0][0][l])
		out[l] = make([]float64, np)
		for p := 0; p < np; p++ {
			for c := 0; c < m; c++ {
				for i := 0; i < n; i++ {
					series[i] = samples[c][i][l][p]
				}
				means[c], vars[c] = stat.PopMeanVariance(series, nil)
			}
			w := stat.Mean(vars, nil)
			if w < minWithinVariance {
				out[l][p] = DegenerateRHat
				continue
			}
			_, b := stat.PopMeanVariance(means, nil)
			nf := float64(n)
			out[l][p] = math.Sqrt(1 + (nf-1)/nf*b/w)
		}
	}
	return out
}

// Converged reports whether every R̂ selected by mask is below threshold.
// A nil mask selects every entry.
func Converged(rhat [][]float64, threshold float64, mask [][]bool) bool {
	for l, row := range rhat {
		for p, r := range row {
			if mask != nil && !mask[l][p] {
				continue
			}
			if !(r < threshold) {
				return false
			}
		}
	}
	return true
}

// FreeMask marks the parameters that are not pinned by their prior.
func FreeMask(priors []column.LayerPriors) [][]bool {
	mask := make([][]bool, len(priors))
	for l, lp := range priors {
		mask[l] = make([]bool, column.NumParams)
		for p, pr := range lp.Priors {
			mask[l][p] = !pr.Fixed()
		}
	}
	return mask
}

// MaxRHat returns the largest R̂ selected by mask.
func MaxRHat(rhat [][]float64, mask [][]bool) float64 {
	best := 0.0
	for l, row := range rhat {
		for p, r := range row {
			if mask != nil && !mask[l][p] {
				continue
			}
			if r > best {
				best = r
			}
		}
	}
	return best
}
