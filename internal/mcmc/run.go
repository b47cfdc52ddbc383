package mcmc

import (
	"time"

	"github.com/san-kum/streamheat/internal/analysis"
	"github.com/san-kum/streamheat/internal/column"
)

// Run is the outcome of a calibration. After cancellation it holds the
// iterations completed so far.
type Run struct {
	Priors []column.LayerPriors

	// States and Energies cover the initial sampling state and every
	// sampling iteration, indexed [iter][chain].
	States   [][]State
	Energies [][]float64
	// Acceptance is the sampling acceptance ratio of every chain.
	Acceptance []float64

	BurnInIterations int
	Converged        bool
	// RHat is the last Gelman-Rubin estimate of burn-in, [layer][param].
	RHat [][]float64
	// BurnInCrossover and Crossover are the crossover probabilities,
	// [layer][bin], when burn-in ended and when the run ended.
	BurnInCrossover [][]float64
	Crossover       [][]float64

	// Temperatures and Flux are subsampled fields indexed
	// [sample][chain][cell][time] on the Depths × Times grid.
	Temperatures [][][][]float64
	Flux         [][][][]float64
	Depths       []float64
	Times        []time.Time

	quantiles []float64
}

// Best returns the state of lowest energy. It reports false when no
// state was recorded.
func (r *Run) Best() (State, bool) {
	i, c := analysis.BestIndex(r.Energies)
	if i < 0 {
		return State{}, false
	}
	return r.States[i][c], true
}

// QuantileLevels returns the configured quantile levels.
func (r *Run) QuantileLevels() []float64 { return r.quantiles }

// Quantiles returns the posterior temperature quantiles, one [cell][time]
// grid per configured level.
func (r *Run) Quantiles() map[float64][][]float64 {
	return analysis.Quantiles(r.Temperatures, r.quantiles)
}

// FluxQuantiles is Quantiles for the Darcy flux.
func (r *Run) FluxQuantiles() map[float64][][]float64 {
	return analysis.Quantiles(r.Flux, r.quantiles)
}

// Samples returns the physical parameters of every recorded state,
// indexed [iter][chain][layer][param].
func (r *Run) Samples() [][][][]float64 {
	out := make([][][][]float64, len(r.States))
	for i, row := range r.States {
		out[i] = make([][][]float64, len(row))
		for c, st := range row {
			out[i][c] = make([][]float64, len(st.Layers))
			for l, layer := range st.Layers {
				t := layer.Params.Tuple()
				out[i][c][l] = t[:]
			}
		}
	}
	return out
}

// ParamQuantiles returns posterior quantiles indexed [layer][param][q].
func (r *Run) ParamQuantiles() [][][]float64 {
	return analysis.ParamQuantiles(r.Samples(), r.quantiles)
}

// Sigma2 returns the noise variance of every recorded state, [iter][chain].
func (r *Run) Sigma2() [][]float64 {
	out := make([][]float64, len(r.States))
	for i, row := range r.States {
		out[i] = make([]float64, len(row))
		for c, st := range row {
			out[i][c] = st.Sigma2
		}
	}
	return out
}
