package mcmc

import (
	"testing"
)

func baseShape() Shape {
	return Shape{
		Chains: 10, Iterations: 1000, Cells: 100, Times: 2000, Layers: 2, Params: 5,
		SubsampleIter: 10, SubsampleSpace: 1, SubsampleTime: 1,
	}
}

func TestEstimateMemoryMonotone(t *testing.T) {
	base := EstimateMemory(baseShape())
	if base <= 0 {
		t.Fatalf("expected a positive estimate, got %d", base)
	}

	grow := []func(*Shape){
		func(s *Shape) { s.Chains *= 2 },
		func(s *Shape) { s.Iterations *= 2 },
		func(s *Shape) { s.Cells *= 2 },
		func(s *Shape) { s.Times *= 2 },
		func(s *Shape) { s.Layers++ },
	}
	for i, g := range grow {
		s := baseShape()
		g(&s)
		if got := EstimateMemory(s); got <= base {
			t.Errorf("case %d: expected more than %d bytes, got %d", i, base, got)
		}
	}

	shrink := []func(*Shape){
		func(s *Shape) { s.SubsampleIter *= 2 },
		func(s *Shape) { s.SubsampleSpace = 2 },
		func(s *Shape) { s.SubsampleTime = 2 },
	}
	for i, g := range shrink {
		s := baseShape()
		g(&s)
		if got := EstimateMemory(s); got >= base {
			t.Errorf("case %d: expected less than %d bytes, got %d", i, base, got)
		}
	}
}

func TestEstimateMemoryFormula(t *testing.T) {
	s := Shape{Chains: 1, Iterations: 0, Cells: 1, Times: 1, Layers: 1, Params: 1, SubsampleIter: 1, SubsampleSpace: 1, SubsampleTime: 1}
	// (4+1) + 2 + 1 + 0 + 1 + 3 + 2 + 6 = 20 values
	expected := int64(20 * 1.3 * 8)
	if got := EstimateMemory(s); got != expected && got != expected+1 {
		t.Errorf("expected %d bytes, got %d", expected, got)
	}
}

func TestProposeCadence(t *testing.T) {
	s := baseShape()
	s.SubsampleIter = 1
	full := EstimateMemory(s)

	budget := full / 4
	n, ok := ProposeCadence(s, budget)
	if !ok {
		t.Fatal("expected a cadence to fit")
	}
	if n < minCadence {
		t.Errorf("expected cadence of at least %d, got %d", minCadence, n)
	}
	s.SubsampleIter = n
	if EstimateMemory(s) > budget {
		t.Errorf("cadence %d does not fit the budget", n)
	}
	if n > minCadence {
		s.SubsampleIter = n - 1
		if EstimateMemory(s) <= budget {
			t.Errorf("cadence %d is not the smallest that fits", n)
		}
	}

	if _, ok := ProposeCadence(s, 1); ok {
		t.Error("expected no cadence to fit a one-byte budget")
	}
}
