package mcmc

import (
	"context"
	"sync"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/metrics"
	"github.com/san-kum/streamheat/internal/sim"
)

// Target evaluates the energy of a set of layers. Evaluate must be safe
// for concurrent use with distinct buffers.
type Target interface {
	// Evaluate solves for layers with noise variance sigma2, writing the
	// forward fields into buf when buf is not nil.
	Evaluate(ctx context.Context, layers []column.Layer, sigma2 float64, buf *sim.Result) (float64, error)
	// NewBuffer allocates a field buffer, or returns nil when the target
	// produces no fields.
	NewBuffer() *sim.Result
	// Grid returns the cell and time counts of the fields.
	Grid() (cells, times int)
}

// ColumnTarget compares the simulated sensor temperatures of a column
// with its measurements.
type ColumnTarget struct {
	sim    *sim.Simulator
	energy metrics.Energy
	grids  sync.Pool
}

func NewColumnTarget(s *sim.Simulator, energy metrics.Energy) *ColumnTarget {
	col := s.Column()
	nt, ns := col.NumTimes(), len(col.SensorCells)
	t := &ColumnTarget{sim: s, energy: energy}
	t.grids.New = func() any {
		g := make([][]float64, nt)
		for j := range g {
			g[j] = make([]float64, ns)
		}
		return g
	}
	return t
}

func (t *ColumnTarget) Evaluate(ctx context.Context, layers []column.Layer, sigma2 float64, buf *sim.Result) (float64, error) {
	if buf == nil {
		buf = t.NewBuffer()
	}
	if err := t.sim.RunInto(ctx, layers, buf); err != nil {
		return 0, err
	}
	sensors := t.grids.Get().([][]float64)
	defer t.grids.Put(sensors)
	buf.SensorsInto(sensors)
	return t.energy.Energy(sensors, t.sim.Column().Measured, sigma2), nil
}

func (t *ColumnTarget) NewBuffer() *sim.Result {
	col := t.sim.Column()
	return sim.NewResult(col.Cells, col.NumTimes())
}

func (t *ColumnTarget) Grid() (int, int) {
	col := t.sim.Column()
	return col.Cells, col.NumTimes()
}
