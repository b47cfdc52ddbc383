package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/mcmc"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrNoSolution indicates no grid point could be evaluated.
	ErrNoSolution = errors.New("optim: no grid point solved")

	// ErrGridTooLarge indicates more grid points than the configured limit.
	ErrGridTooLarge = errors.New("optim: grid too large")
)

// DefaultMaxPoints bounds the number of forward solves of one scan.
const DefaultMaxPoints = 100000

// Axis is one scanned parameter.
type Axis struct {
	Layer  int
	Param  int
	Name   string
	Values []float64 // sampling space
}

// Point is one evaluated grid point.
type Point struct {
	Layers []column.Layer
	Energy float64
}

// GridSearch evaluates the energy on a regular grid spanning the prior
// range of every free parameter. Fixed parameters keep their value.
type GridSearch struct {
	points    int
	workers   int
	maxPoints int
}

func NewGridSearch(points, workers int) *GridSearch {
	if points < 2 {
		points = 2
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &GridSearch{points: points, workers: workers, maxPoints: DefaultMaxPoints}
}

// Axes lists the scanned parameters of priors.
func (g *GridSearch) Axes(priors []column.LayerPriors) []Axis {
	var axes []Axis
	for l, lp := range priors {
		for p, pr := range lp.Priors {
			if pr.Fixed() {
				continue
			}
			lo, hi := pr.Bounds()
			axes = append(axes, Axis{
				Layer:  l,
				Param:  p,
				Name:   fmt.Sprintf("%s.%s", lp.Name, column.ParamNames[p]),
				Values: floats.Span(make([]float64, g.points), lo, hi),
			})
		}
	}
	return axes
}

// Search evaluates every grid point and returns the best one along with
// all successful evaluations sorted by energy. Failed solves are skipped.
func (g *GridSearch) Search(ctx context.Context, target mcmc.Target, priors []column.LayerPriors, sigma2 float64) (Point, []Point, error) {
	axes := g.Axes(priors)
	total := 1
	for range axes {
		total *= g.points
		if total > g.maxPoints {
			return Point{}, nil, fmt.Errorf("%w: %d free parameters at %d points exceed %d solves", ErrGridTooLarge, len(axes), g.points, g.maxPoints)
		}
	}

	base := make([][]float64, len(priors))
	for l, lp := range priors {
		base[l] = make([]float64, column.NumParams)
		for p, pr := range lp.Priors {
			lo, _ := pr.Bounds()
			base[l][p] = lo
		}
	}

	var grid [][][]float64
	g.searchRecursive(0, axes, base, &grid)

	results := make([]Point, len(grid))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, x := range grid {
		eg.Go(func() error {
			layers := make([]column.Layer, len(priors))
			for l, lp := range priors {
				layers[l] = column.Layer{Name: lp.Name, ZLow: lp.ZLow, Params: lp.Priors.ToParams(x[l])}
			}
			results[i] = Point{Layers: layers, Energy: math.Inf(1)}
			energy, err := target.Evaluate(ectx, layers, sigma2, target.NewBuffer())
			if err != nil {
				return ectx.Err()
			}
			results[i].Energy = energy
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Point{}, nil, err
	}

	solved := results[:0]
	for _, r := range results {
		if !math.IsInf(r.Energy, 1) && !math.IsNaN(r.Energy) {
			solved = append(solved, r)
		}
	}
	if len(solved) == 0 {
		return Point{}, nil, ErrNoSolution
	}
	sort.SliceStable(solved, func(i, j int) bool { return solved[i].Energy < solved[j].Energy })
	return solved[0], solved, nil
}

func (g *GridSearch) searchRecursive(depth int, axes []Axis, current [][]float64, out *[][][]float64) {
	if depth == len(axes) {
		point := make([][]float64, len(current))
		for l := range current {
			point[l] = append([]float64(nil), current[l]...)
		}
		*out = append(*out, point)
		return
	}

	ax := axes[depth]
	for _, val := range ax.Values {
		current[ax.Layer][ax.Param] = val
		g.searchRecursive(depth+1, axes, current, out)
	}
}
