package mcmc

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/sim"
)

var errUnsolvable = errors.New("unsolvable")

// funcTarget evaluates a closed-form energy of the first layer's params.
type funcTarget struct {
	energy func(p column.Params) (float64, error)
	cells  int
	times  int
	calls  atomic.Int64
}

func (t *funcTarget) Evaluate(ctx context.Context, layers []column.Layer, sigma2 float64, buf *sim.Result) (float64, error) {
	t.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return t.energy(layers[0].Params)
}

func (t *funcTarget) NewBuffer() *sim.Result { return nil }

func (t *funcTarget) Grid() (int, int) { return t.cells, t.times }

func slope(k float64) *funcTarget {
	return &funcTarget{energy: func(p column.Params) (float64, error) {
		return k * p.LogK, nil
	}}
}

func gaussian(mean, sd float64) *funcTarget {
	return &funcTarget{energy: func(p column.Params) (float64, error) {
		a := (p.LogK - mean) / sd
		b := (p.Porosity - 0.3) / 0.05
		return 0.5 * (a*a + b*b), nil
	}}
}

// unitPriors frees LogK on [0, 1] with the given step and pins the rest.
func unitPriors(step float64) []column.LayerPriors {
	var pp column.ParamPriors
	pp[0] = column.NewPrior(0, 1, step)
	pp[1] = column.FixedPrior(0.2)
	pp[2] = column.FixedPrior(2)
	pp[3] = column.FixedPrior(4e6)
	pp[4] = column.FixedPrior(0)
	return []column.LayerPriors{{Name: "bed", ZLow: 0.4, Priors: pp}}
}

func testConfig(chains, burnIn, iterations int) Config {
	cfg := DefaultConfig()
	cfg.Chains = chains
	cfg.BurnIn = burnIn
	cfg.Iterations = iterations
	cfg.SubsampleIter = 1
	cfg.MemoryBudget = 0
	cfg.Workers = 2
	return cfg
}

// recordingSink counts events and optionally cancels a run.
type recordingSink struct {
	opened         int
	flushed        int
	iterations     []Progress
	nonConvergence []RHatSummary
	onIteration    func(p Progress)
}

func (s *recordingSink) Open(RunInfo) error { s.opened++; return nil }

func (s *recordingSink) Iteration(p Progress) {
	s.iterations = append(s.iterations, p)
	if s.onIteration != nil {
		s.onIteration(p)
	}
}

func (s *recordingSink) NonConvergence(r RHatSummary) {
	s.nonConvergence = append(s.nonConvergence, r)
}

func (s *recordingSink) Flush() error { s.flushed++; return nil }
