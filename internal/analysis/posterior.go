package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantiles computes pointwise quantiles of a field sampled at every
// iteration and chain. fields is indexed [iter][chain][cell][time] and
// the result maps each q to a [cell][time] grid.
func Quantiles(fields [][][][]float64, qs []float64) map[float64][][]float64 {
	out := make(map[float64][][]float64, len(qs))
	if len(fields) == 0 || len(fields[0]) == 0 {
		return out
	}
	cells := len(fields[0][0])
	times := len(fields[0][0][0])
	for _, q := range qs {
		g := make([][]float64, cells)
		for k := range g {
			g[k] = make([]float64, times)
		}
		out[q] = g
	}

	buf := make([]float64, 0, len(fields)*len(fields[0]))
	for k := 0; k < cells; k++ {
		for t := 0; t < times; t++ {
			buf = buf[:0]
			for _, it := range fields {
				for _, ch := range it {
					buf = append(buf, ch[k][t])
				}
			}
			sort.Float64s(buf)
			for _, q := range qs {
				out[q][k][t] = stat.Quantile(q, stat.LinInterp, buf, nil)
			}
		}
	}
	return out
}

// ParamQuantiles returns posterior quantiles indexed [layer][param][q]
// for samples indexed [iter][chain][layer][param].
func ParamQuantiles(samples [][][][]float64, qs []float64) [][][]float64 {
	if len(samples) == 0 || len(samples[0]) == 0 {
		return nil
	}
	nl := len(samples[0][0])
	buf := make([]float64, 0, len(samples)*len(samples[0]))

	out := make([][][]float64, nl)
	for l := 0; l < nl; l++ {
		np := len(samples[0][0][l])
		out[l] = make([][]float64, np)
		for p := 0; p < np; p++ {
			buf = buf[:0]
			for _, it := range samples {
				for _, ch := range it {
					buf = append(buf, ch[l][p])
				}
			}
			sort.Float64s(buf)
			out[l][p] = make([]float64, len(qs))
			for i, q := range qs {
				out[l][p][i] = stat.Quantile(q, stat.LinInterp, buf, nil)
			}
		}
	}
	return out
}

// BestIndex returns the iteration and chain of the lowest energy in a
// grid indexed [iter][chain]. NaN energies are ignored.
func BestIndex(energies [][]float64) (iter, chain int) {
	best := math.Inf(1)
	iter, chain = -1, -1
	for i, row := range energies {
		for c, e := range row {
			if e < best {
				best, iter, chain = e, i, c
			}
		}
	}
	return iter, chain
}
