package sim

import (
	"context"
	"runtime"

	"github.com/san-kum/streamheat/internal/column"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs independent forward solves of one column concurrently.
type Ensemble struct {
	base    *Simulator
	workers int
}

// NewEnsemble bounds concurrency to workers; zero means GOMAXPROCS.
func NewEnsemble(s *Simulator, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{base: s, workers: workers}
}

// Run solves every layer set. The first failure cancels the remaining
// solves and is returned.
func (e *Ensemble) Run(ctx context.Context, layerSets [][]column.Layer) ([]*Result, error) {
	results := make([]*Result, len(layerSets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range layerSets {
		g.Go(func() error {
			res, err := e.base.Run(ctx, layerSets[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunEach solves every layer set and keeps going past failures; errs[i]
// is the error of layerSets[i].
func (e *Ensemble) RunEach(ctx context.Context, layerSets [][]column.Layer) ([]*Result, []error) {
	results := make([]*Result, len(layerSets))
	errs := make([]error, len(layerSets))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range layerSets {
		g.Go(func() error {
			results[i], errs[i] = e.base.Run(ctx, layerSets[i])
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}
