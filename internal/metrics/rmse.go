package metrics

import "math"

// RMSE returns the root-mean-square error of every sensor and of all
// sensors together. NaN residuals are skipped; a sensor without any
// finite residual reports NaN.
func RMSE(sim, meas [][]float64) (perSensor []float64, total float64) {
	if len(meas) == 0 {
		return nil, math.NaN()
	}
	ns := len(meas[0])
	sums := make([]float64, ns)
	counts := make([]int, ns)
	for t := range meas {
		for s := 0; s < ns; s++ {
			r := sim[t][s] - meas[t][s]
			if math.IsNaN(r) {
				continue
			}
			sums[s] += r * r
			counts[s]++
		}
	}

	perSensor = make([]float64, ns)
	var all float64
	n := 0
	for s := range sums {
		all += sums[s]
		n += counts[s]
		if counts[s] == 0 {
			perSensor[s] = math.NaN()
			continue
		}
		perSensor[s] = math.Sqrt(sums[s] / float64(counts[s]))
	}
	if n == 0 {
		return perSensor, math.NaN()
	}
	return perSensor, math.Sqrt(all / float64(n))
}
