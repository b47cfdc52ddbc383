package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/sim"
)

type bowl struct {
	fail func(p column.Params) bool
}

func (b bowl) Evaluate(ctx context.Context, layers []column.Layer, sigma2 float64, buf *sim.Result) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p := layers[0].Params
	if b.fail != nil && b.fail(p) {
		return 0, errors.New("unsolvable")
	}
	return (p.LogK-0.5)*(p.LogK-0.5) + (p.Porosity-0.3)*(p.Porosity-0.3), nil
}

func (bowl) NewBuffer() *sim.Result { return nil }
func (bowl) Grid() (int, int)       { return 0, 0 }

func bowlPriors() []column.LayerPriors {
	var pp column.ParamPriors
	pp[0] = column.NewPrior(0, 1, 0.1)
	pp[1] = column.NewPrior(0.1, 0.5, 0.01)
	pp[2] = column.FixedPrior(2)
	pp[3] = column.FixedPrior(4e6)
	pp[4] = column.FixedPrior(0)
	return []column.LayerPriors{{Name: "bed", ZLow: 1, Priors: pp}}
}

func TestGridSearchFindsMinimum(t *testing.T) {
	g := NewGridSearch(11, 4)
	axes := g.Axes(bowlPriors())
	if len(axes) != 2 || axes[0].Name != "bed.logk" || axes[1].Name != "bed.porosity" {
		t.Fatalf("unexpected axes %+v", axes)
	}

	best, all, err := g.Search(context.Background(), bowl{}, bowlPriors(), 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(all) != 121 {
		t.Errorf("expected 121 points, got %d", len(all))
	}
	if math.Abs(best.Layers[0].Params.LogK-0.5) > 1e-12 {
		t.Errorf("expected logk 0.5, got %g", best.Layers[0].Params.LogK)
	}
	if math.Abs(best.Layers[0].Params.Porosity-0.3) > 1e-12 {
		t.Errorf("expected porosity 0.3, got %g", best.Layers[0].Params.Porosity)
	}
	if best.Layers[0].Params.RhoCS != 4e6 {
		t.Errorf("expected fixed rhocs, got %g", best.Layers[0].Params.RhoCS)
	}
	for i := 1; i < len(all); i++ {
		if all[i].Energy < all[i-1].Energy {
			t.Fatal("expected points sorted by energy")
		}
	}
}

func TestGridSearchSkipsFailures(t *testing.T) {
	target := bowl{fail: func(p column.Params) bool { return p.LogK < 0.7 }}
	best, all, err := NewGridSearch(11, 2).Search(context.Background(), target, bowlPriors(), 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(all) != 4*11 {
		t.Errorf("expected 44 solved points, got %d", len(all))
	}
	if math.Abs(best.Layers[0].Params.LogK-0.7) > 1e-12 {
		t.Errorf("expected logk 0.7, got %g", best.Layers[0].Params.LogK)
	}

	all0 := bowl{fail: func(column.Params) bool { return true }}
	if _, _, err := NewGridSearch(3, 2).Search(context.Background(), all0, bowlPriors(), 1); !errors.Is(err, ErrNoSolution) {
		t.Errorf("expected ErrNoSolution, got %v", err)
	}
}

func TestGridSearchLimits(t *testing.T) {
	g := NewGridSearch(11, 1)
	g.maxPoints = 100
	if _, _, err := g.Search(context.Background(), bowl{}, bowlPriors(), 1); !errors.Is(err, ErrGridTooLarge) {
		t.Errorf("expected ErrGridTooLarge, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewGridSearch(3, 1).Search(ctx, bowl{}, bowlPriors(), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
