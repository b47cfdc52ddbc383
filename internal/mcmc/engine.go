package mcmc

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"github.com/san-kum/streamheat/internal/analysis"
	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/metrics"
	"github.com/san-kum/streamheat/internal/sim"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// initial samples tried per chain before giving up
	maxInitTries = 100
	// probability of a γ=1 jump, which lets chains hop between modes
	unitJumpRate = 0.2
	jumpScale    = 2.38
)

// Engine runs DREAM calibrations against a Target.
type Engine struct {
	cfg    Config
	target Target
	sink   Sink
}

// New validates cfg. A nil sink discards events.
func New(cfg Config, target Target, sink Sink) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.NoiseMode == metrics.NoiseUnknown {
		p := cfg.Sigma2Prior()
		if err := p.Validate("sigma2"); err != nil {
			return nil, err
		}
		if p.Range[0] <= 0 {
			return nil, configErr("sigma2_range", "must be strictly positive, got %v", p.Range)
		}
	}
	if sink == nil {
		sink = NopSink{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{cfg: cfg, target: target, sink: sink}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Shape returns the memory shape of a run over priors.
func (e *Engine) Shape(priors []column.LayerPriors) Shape {
	cells, times := e.target.Grid()
	return Shape{
		Chains:         e.cfg.Chains,
		Iterations:     e.cfg.Iterations,
		Cells:          cells,
		Times:          times,
		Layers:         len(priors),
		Params:         column.NumParams,
		SubsampleIter:  e.cfg.SubsampleIter,
		SubsampleSpace: e.cfg.SubsampleSpace,
		SubsampleTime:  e.cfg.SubsampleTime,
	}
}

// Run calibrates the layers described by priors. Cancelling ctx stops
// the run at the next iteration boundary and returns the partial run
// together with ctx.Err().
func (e *Engine) Run(ctx context.Context, priors []column.LayerPriors) (run *Run, err error) {
	if len(priors) == 0 {
		return nil, configErr("priors", "at least one layer is required")
	}
	priors = append([]column.LayerPriors(nil), priors...)
	sort.SliceStable(priors, func(i, j int) bool { return priors[i].ZLow < priors[j].ZLow })
	for _, lp := range priors {
		if err := lp.Priors.Validate(); err != nil {
			return nil, err
		}
	}

	shape := e.Shape(priors)
	estimate := EstimateMemory(shape)
	if e.cfg.MemoryBudget > 0 && estimate > e.cfg.MemoryBudget {
		suggested, _ := ProposeCadence(shape, e.cfg.MemoryBudget)
		return nil, &ResourceError{Estimate: estimate, Budget: e.cfg.MemoryBudget, Suggested: suggested}
	}

	s := newSampler(e.cfg, e.target, priors)
	if err := e.sink.Open(RunInfo{
		Chains:     e.cfg.Chains,
		Layers:     len(priors),
		Iterations: e.cfg.Iterations,
		BurnIn:     e.cfg.BurnIn,
		Pairs:      s.pairs,
		NoiseMode:  e.cfg.NoiseMode,
		Seed:       e.cfg.Seed,
		Estimate:   estimate,
	}); err != nil {
		return nil, fmt.Errorf("mcmc: open sink: %w", err)
	}
	defer func() {
		if ferr := e.sink.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("mcmc: flush sink: %w", ferr)
		}
	}()

	run = &Run{Priors: priors, quantiles: append([]float64(nil), e.cfg.Quantiles...)}
	if err := s.init(ctx); err != nil {
		return run, err
	}
	e.sink.Iteration(Progress{Phase: PhaseInit, Total: e.cfg.Chains, BestEnergy: s.ens.Energy[s.ens.Best()]})

	if e.cfg.Chains == 1 {
		err = s.bestOfPrior(ctx, run, e.sink)
	} else {
		err = s.burnIn(ctx, run, e.sink)
	}
	if err != nil {
		return s.finish(run), err
	}
	run.BurnInCrossover = s.cr.Probabilities()

	err = s.sample(ctx, run, e.sink)
	return s.finish(run), err
}

// sampler is the mutable state of one run.
type sampler struct {
	cfg        Config
	target     Target
	priors     []column.LayerPriors
	sigmaPrior column.Prior
	noise      bool
	pairs      int

	ens *ChainEnsemble
	cr  *crossover
	// free lists the non-fixed parameter indices of every layer
	free [][]int
	// std is the spread of the snapshot across chains, [layer][param]
	std [][]float64

	// per-chain scratch
	srcs      []*rand.PCG
	rngs      []*rand.Rand
	props     [][][]float64
	proposals []*sim.Result
	jumps     [][]jump
	z         [][]float64
	active    [][]int
	others    [][]int
	dx        [][]float64
}

func newSampler(cfg Config, target Target, priors []column.LayerPriors) *sampler {
	n, nl := cfg.Chains, len(priors)
	s := &sampler{
		cfg:        cfg,
		target:     target,
		priors:     priors,
		sigmaPrior: cfg.Sigma2Prior(),
		noise:      cfg.NoiseMode == metrics.NoiseUnknown,
		pairs:      cfg.pairs(),
		ens:        newChainEnsemble(n, nl),
		cr:         newCrossover(nl, cfg.NCR),
		free:       make([][]int, nl),
		std:        make([][]float64, nl),
		srcs:       make([]*rand.PCG, n),
		rngs:       make([]*rand.Rand, n),
		props:      make([][][]float64, n),
		proposals:  make([]*sim.Result, n),
		jumps:      make([][]jump, n),
		z:          make([][]float64, n),
		active:     make([][]int, n),
		others:     make([][]int, n),
		dx:         make([][]float64, n),
	}
	for l, lp := range priors {
		for p, pr := range lp.Priors {
			if !pr.Fixed() {
				s.free[l] = append(s.free[l], p)
			}
		}
		s.std[l] = make([]float64, column.NumParams)
	}
	for c := 0; c < n; c++ {
		s.srcs[c] = rand.NewPCG(cfg.Seed, uint64(c)+1)
		s.rngs[c] = rand.New(s.srcs[c])
		s.props[c] = newPosition(nl)
		s.ens.Results[c] = target.NewBuffer()
		s.proposals[c] = target.NewBuffer()
		s.jumps[c] = make([]jump, nl)
		s.z[c] = make([]float64, column.NumParams)
		s.active[c] = make([]int, 0, column.NumParams)
		s.others[c] = make([]int, 0, n)
		s.dx[c] = make([]float64, column.NumParams)
	}
	return s
}

// init draws a solvable starting point for every chain.
func (s *sampler) init(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for c := range s.ens.X {
		g.Go(func() error {
			var lastErr error
			for try := 0; try < maxInitTries; try++ {
				energy, err := s.drawPrior(gctx, c, s.ens.X[c], s.ens.Results[c])
				if err == nil {
					s.ens.Energy[c] = energy
					return nil
				}
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				lastErr = err
			}
			return fmt.Errorf("%w: chain %d after %d tries: %v", ErrNoValidStart, c, maxInitTries, lastErr)
		})
	}
	return g.Wait()
}

// drawPrior samples chain c's position (and σ²) into x and evaluates it.
func (s *sampler) drawPrior(ctx context.Context, c int, x [][]float64, buf *sim.Result) (float64, error) {
	src := s.srcs[c]
	for l, lp := range s.priors {
		for p, pr := range lp.Priors {
			x[l][p] = pr.Sample(src)
		}
	}
	s.ens.Sigma2[c] = s.cfg.Sigma2
	if s.noise {
		s.ens.Sigma2[c] = s.sigmaPrior.ToPhysical(s.sigmaPrior.Sample(src))
	}
	energy, err := s.target.Evaluate(ctx, layersOf(s.priors, x), s.ens.Sigma2[c], buf)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return 0, fmt.Errorf("mcmc: non-finite energy %g", energy)
	}
	return energy, nil
}

// bestOfPrior replaces burn-in for a single chain: the best of BurnIn
// prior draws, the initial one included, becomes the starting point.
func (s *sampler) bestOfPrior(ctx context.Context, run *Run, sink Sink) error {
	ens := s.ens
	sigma2 := ens.Sigma2[0]
	for i := 1; i < s.cfg.BurnIn; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		energy, err := s.drawPrior(ctx, 0, s.props[0], s.proposals[0])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
		} else if energy < ens.Energy[0] {
			copyPosition(ens.X[0], s.props[0])
			ens.Energy[0] = energy
			sigma2 = ens.Sigma2[0]
			ens.Results[0], s.proposals[0] = s.proposals[0], ens.Results[0]
		}
		// drawPrior overwrites σ²; keep the one of the retained sample
		ens.Sigma2[0] = sigma2
		run.BurnInIterations = i
		sink.Iteration(Progress{Phase: PhaseBurnIn, Iteration: i, Total: s.cfg.BurnIn - 1, BestEnergy: ens.Energy[0]})
	}
	return nil
}

// burnIn iterates with crossover adaptation until the chains pass the
// Gelman-Rubin test or the budget runs out. The history starts with the
// initial ensemble.
func (s *sampler) burnIn(ctx context.Context, run *Run, sink Sink) error {
	ens := s.ens
	mask := analysis.FreeMask(s.priors)
	history := make([][][][]float64, ens.Chains())
	record := func() {
		for c := range history {
			x := newPosition(len(s.priors))
			copyPosition(x, ens.X[c])
			history[c] = append(history[c], x)
		}
	}
	record()

	for it := 1; it <= s.cfg.BurnIn; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.step(ctx, true); err != nil {
			return err
		}
		run.BurnInIterations = it
		record()

		p := Progress{
			Phase:      PhaseBurnIn,
			Iteration:  it,
			Total:      s.cfg.BurnIn,
			Acceptance: ens.meanAcceptance(),
			BestEnergy: ens.Energy[ens.Best()],
		}
		run.RHat = analysis.GelmanRubin(history)
		p.MaxRHat = analysis.MaxRHat(run.RHat, mask)
		sink.Iteration(p)
		if analysis.Converged(run.RHat, s.cfg.Threshold, mask) {
			run.Converged = true
			return nil
		}
	}

	if s.cfg.BurnIn > 0 {
		sink.NonConvergence(RHatSummary{
			RHat:       run.RHat,
			Mask:       mask,
			Threshold:  s.cfg.Threshold,
			Iterations: s.cfg.BurnIn,
		})
	}
	return nil
}

// sample runs the sampling iterations and records the trajectory.
func (s *sampler) sample(ctx context.Context, run *Run, sink Sink) error {
	ens := s.ens
	for c := range ens.Acceptance {
		ens.Acceptance[c].Reset()
	}
	s.recordStates(run)
	s.recordFields(run)

	for it := 1; it <= s.cfg.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.step(ctx, !s.cfg.FreezeCrossover); err != nil {
			return err
		}
		s.recordStates(run)
		if it%s.cfg.SubsampleIter == 0 {
			s.recordFields(run)
		}
		sink.Iteration(Progress{
			Phase:      PhaseSampling,
			Iteration:  it,
			Total:      s.cfg.Iterations,
			Acceptance: ens.meanAcceptance(),
			BestEnergy: ens.Energy[ens.Best()],
		})
	}
	return nil
}

func (s *sampler) finish(run *Run) *Run {
	run.Acceptance = make([]float64, s.ens.Chains())
	for c := range run.Acceptance {
		run.Acceptance[c] = s.ens.Acceptance[c].Value()
	}
	run.Crossover = s.cr.Probabilities()
	return run
}

// step moves every chain once. With adapt set the jump statistics of
// the iteration update the crossover probabilities.
func (s *sampler) step(ctx context.Context, adapt bool) error {
	snap := s.ens.Snapshot()
	s.spread(snap)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for c := range snap {
		g.Go(func() error {
			return s.move(gctx, c, snap)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if adapt {
		s.cr.record(s.jumps)
		s.cr.adapt()
	}
	return nil
}

// spread computes the population standard deviation of every parameter
// across the snapshot.
func (s *sampler) spread(snap [][][]float64) {
	buf := make([]float64, len(snap))
	for l := range s.std {
		for p := range s.std[l] {
			for c := range snap {
				buf[c] = snap[c][l][p]
			}
			_, v := stat.PopMeanVariance(buf, nil)
			s.std[l][p] = math.Sqrt(v)
		}
	}
}

// move proposes and accepts or rejects a new position for chain c.
func (s *sampler) move(ctx context.Context, c int, snap [][][]float64) error {
	ens := s.ens
	src, rng := s.srcs[c], s.rngs[c]
	prop := s.props[c]
	copyPosition(prop, snap[c])

	for l, lp := range s.priors {
		s.jumps[c][l] = jump{bin: -1}
		free := s.free[l]
		if len(free) == 0 {
			continue
		}

		bin := s.cr.draw(src, l)
		rate := s.cr.rate(bin)
		z := s.z[c][:len(free)]
		active := s.active[c][:0]
		for i, d := range free {
			z[i] = rng.Float64()
			if z[i] <= rate {
				active = append(active, d)
			}
		}
		if len(active) == 0 {
			active = append(active, free[floats.MinIdx(z)])
		}

		dx := s.dx[c]
		if s.pairs > 0 {
			others := s.pickOthers(c)
			gamma := jumpScale / math.Sqrt(float64(2*len(active)*s.pairs))
			if rng.Float64() < unitJumpRate {
				gamma = 1
			}
			for _, d := range active {
				var diff float64
				for k := 0; k < s.pairs; k++ {
					diff += snap[others[k]][l][d] - snap[others[s.pairs+k]][l][d]
				}
				e := distuv.Uniform{Min: -s.cfg.C, Max: s.cfg.C, Src: src}.Rand()
				dx[d] = (1+e)*gamma*diff + s.cfg.CStar*rng.NormFloat64()
			}
		} else {
			for _, d := range active {
				dx[d] = lp.Priors[d].Step() * rng.NormFloat64()
			}
		}

		var size float64
		for _, d := range active {
			prop[l][d] = lp.Priors[d].Wrap(snap[c][l][d] + dx[d])
			if sd := s.std[l][d]; sd > 0 {
				size += (dx[d] / sd) * (dx[d] / sd)
			}
		}
		s.jumps[c][l] = jump{bin: bin, size: size}
	}

	sigma2 := ens.Sigma2[c]
	if s.noise {
		sp := s.sigmaPrior
		sigma2 = sp.ToPhysical(sp.Perturb(src, sp.FromPhysical(sigma2)))
	}

	energy, err := s.target.Evaluate(ctx, layersOf(s.priors, prop), sigma2, s.proposals[c])
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		energy = math.Inf(1)
	}

	accepted := !math.IsNaN(energy) && math.Log(rng.Float64()) < metrics.LogAcceptance(ens.Energy[c], energy)
	ens.Acceptance[c].Observe(accepted)
	if !accepted {
		for l := range s.jumps[c] {
			s.jumps[c][l].size = 0
		}
		return nil
	}
	copyPosition(ens.X[c], prop)
	ens.Energy[c] = energy
	ens.Sigma2[c] = sigma2
	ens.Results[c], s.proposals[c] = s.proposals[c], ens.Results[c]
	return nil
}

// pickOthers draws 2·pairs distinct chains other than c.
func (s *sampler) pickOthers(c int) []int {
	idx := s.others[c][:0]
	for k := 0; k < s.ens.Chains(); k++ {
		if k != c {
			idx = append(idx, k)
		}
	}
	rng := s.rngs[c]
	for k := 0; k < 2*s.pairs; k++ {
		r := k + rng.IntN(len(idx)-k)
		idx[k], idx[r] = idx[r], idx[k]
	}
	return idx[:2*s.pairs]
}

// recordStates appends the current state of every chain.
func (s *sampler) recordStates(run *Run) {
	ens := s.ens
	states := make([]State, ens.Chains())
	energies := make([]float64, ens.Chains())
	for c := range states {
		states[c] = ens.State(c, s.priors)
		energies[c] = ens.Energy[c]
	}
	run.States = append(run.States, states)
	run.Energies = append(run.Energies, energies)
}

// recordFields appends the subsampled fields of every chain.
func (s *sampler) recordFields(run *Run) {
	ens := s.ens
	if ens.Results[0] == nil {
		return
	}
	ns, nt := s.cfg.SubsampleSpace, s.cfg.SubsampleTime
	if run.Depths == nil {
		res := ens.Results[0]
		for k := 0; k < len(res.Depths); k += ns {
			run.Depths = append(run.Depths, res.Depths[k])
		}
		for j := 0; j < len(res.Times); j += nt {
			run.Times = append(run.Times, res.Times[j])
		}
	}

	temps := make([][][]float64, ens.Chains())
	flux := make([][][]float64, ens.Chains())
	for c, res := range ens.Results {
		temps[c] = subsample(res.T, ns, nt)
		flux[c] = subsample(res.Flux, ns, nt)
	}
	run.Temperatures = append(run.Temperatures, temps)
	run.Flux = append(run.Flux, flux)
}

func subsample(field [][]float64, ns, nt int) [][]float64 {
	out := make([][]float64, 0, (len(field)+ns-1)/ns)
	for k := 0; k < len(field); k += ns {
		row := make([]float64, 0, (len(field[k])+nt-1)/nt)
		for j := 0; j < len(field[k]); j += nt {
			row = append(row, field[k][j])
		}
		out = append(out, row)
	}
	return out
}
