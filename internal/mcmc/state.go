package mcmc

import (
	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/metrics"
	"github.com/san-kum/streamheat/internal/sim"
)

// State is one chain at one iteration, in physical units.
type State struct {
	Layers     []column.Layer `json:"layers"`
	Energy     float64        `json:"energy"`
	Acceptance float64        `json:"acceptance"`
	Sigma2     float64        `json:"sigma2"`
}

// ChainEnsemble holds the current position of every chain. X is in the
// sampling space of the priors, indexed [chain][layer][param].
type ChainEnsemble struct {
	X          [][][]float64
	Energy     []float64
	Sigma2     []float64
	Acceptance []metrics.Acceptance
	// Results holds the accepted forward fields of each chain; entries
	// are nil for targets without fields.
	Results []*sim.Result

	snap [][][]float64
}

func newChainEnsemble(chains, layers int) *ChainEnsemble {
	e := &ChainEnsemble{
		X:          make([][][]float64, chains),
		Energy:     make([]float64, chains),
		Sigma2:     make([]float64, chains),
		Acceptance: make([]metrics.Acceptance, chains),
		Results:    make([]*sim.Result, chains),
		snap:       make([][][]float64, chains),
	}
	for c := range e.X {
		e.X[c] = newPosition(layers)
		e.snap[c] = newPosition(layers)
	}
	return e
}

func newPosition(layers int) [][]float64 {
	x := make([][]float64, layers)
	for l := range x {
		x[l] = make([]float64, column.NumParams)
	}
	return x
}

func copyPosition(dst, src [][]float64) {
	for l := range src {
		copy(dst[l], src[l])
	}
}

func (e *ChainEnsemble) Chains() int { return len(e.X) }

// Snapshot copies X into the ensemble's snapshot buffer and returns it.
// Proposals of one iteration read the snapshot only, so chains may be
// updated concurrently.
func (e *ChainEnsemble) Snapshot() [][][]float64 {
	for c := range e.X {
		copyPosition(e.snap[c], e.X[c])
	}
	return e.snap
}

// State converts chain c to physical layers.
func (e *ChainEnsemble) State(c int, priors []column.LayerPriors) State {
	return State{
		Layers:     layersOf(priors, e.X[c]),
		Energy:     e.Energy[c],
		Acceptance: e.Acceptance[c].Value(),
		Sigma2:     e.Sigma2[c],
	}
}

// Best returns the chain with the lowest energy.
func (e *ChainEnsemble) Best() int {
	best := 0
	for c, en := range e.Energy {
		if en < e.Energy[best] {
			best = c
		}
	}
	return best
}

func (e *ChainEnsemble) meanAcceptance() float64 {
	var sum float64
	for c := range e.Acceptance {
		sum += e.Acceptance[c].Value()
	}
	return sum / float64(len(e.Acceptance))
}

func layersOf(priors []column.LayerPriors, x [][]float64) []column.Layer {
	out := make([]column.Layer, len(priors))
	for l, lp := range priors {
		out[l] = column.Layer{Name: lp.Name, ZLow: lp.ZLow, Params: lp.Priors.ToParams(x[l])}
	}
	return out
}
