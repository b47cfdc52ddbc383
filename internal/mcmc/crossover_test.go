package mcmc

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestCrossoverAdapt(t *testing.T) {
	cr := newCrossover(2, 3)
	for _, p := range cr.p[0] {
		if math.Abs(p-1.0/3) > 1e-15 {
			t.Fatalf("expected uniform start, got %v", cr.p[0])
		}
	}

	cr.record([][]jump{
		{{bin: 0, size: 1}, {bin: -1}},
		{{bin: 2, size: 3}, {bin: -1}},
		{{bin: 2, size: 1}, {bin: -1}},
	})
	cr.adapt()

	// bin 0: 1/1, bin 1: untouched 1/3, bin 2: 4/2
	sum := 1 + 1.0/3 + 2
	expected := []float64{1 / sum, (1.0 / 3) / sum, 2 / sum}
	for b, p := range cr.p[0] {
		if math.Abs(p-expected[b]) > 1e-12 {
			t.Errorf("bin %d: expected %g, got %g", b, expected[b], p)
		}
	}
	for b, p := range cr.p[1] {
		if math.Abs(p-1.0/3) > 1e-12 {
			t.Errorf("layer without draws, bin %d: expected 1/3, got %g", b, p)
		}
	}
}

func TestCrossoverAllZeroResetsToUniform(t *testing.T) {
	cr := newCrossover(1, 2)
	cr.record([][]jump{{{bin: 0, size: 0}}, {{bin: 1, size: 0}}})
	cr.adapt()
	if cr.p[0][0] != 0.5 || cr.p[0][1] != 0.5 {
		t.Errorf("expected uniform probabilities, got %v", cr.p[0])
	}
}

func TestCrossoverDraw(t *testing.T) {
	cr := newCrossover(1, 3)
	cr.p[0] = []float64{0, 0, 1}
	src := rand.NewPCG(1, 2)
	for i := 0; i < 100; i++ {
		if b := cr.draw(src, 0); b != 2 {
			t.Fatalf("expected bin 2, got %d", b)
		}
	}
	if got := cr.rate(2); got != 1 {
		t.Errorf("expected rate 1 for the last bin, got %g", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	e := newChainEnsemble(2, 1)
	e.X[0][0][0] = 1
	snap := e.Snapshot()
	e.X[0][0][0] = 2
	if snap[0][0][0] != 1 {
		t.Errorf("expected snapshot to keep 1, got %g", snap[0][0][0])
	}
}
