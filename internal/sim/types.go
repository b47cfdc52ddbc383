package sim

import (
	"math"
	"time"

	"github.com/san-kum/streamheat/internal/physics"
)

type Config struct {
	// Alpha is the θ-scheme weight of the implicit part.
	Alpha float64
	// Viscosity gives μ(T). Non-constant models are refreshed every
	// MuUpdateEvery steps from the previous temperature profile.
	Viscosity     physics.Viscosity
	MuUpdateEvery int
}

func DefaultConfig() Config {
	return Config{
		Alpha:         physics.Alpha,
		Viscosity:     physics.ConstantViscosity(physics.DefaultMu),
		MuUpdateEvery: physics.MuUpdateEvery,
	}
}

// Result holds the fields of one forward run, indexed [cell][time].
type Result struct {
	Depths      []float64
	Times       []time.Time
	SensorCells []int

	H    [][]float64
	T    [][]float64
	Flux [][]float64

	// LambdaM is the bulk thermal conductivity per cell.
	LambdaM []float64
	Dz      float64
}

// NewResult allocates a result for the given grid. Results can be
// reused across runs with RunInto.
func NewResult(cells, times int) *Result {
	r := &Result{
		H:       grid(cells, times),
		T:       grid(cells, times),
		Flux:    grid(cells, times),
		LambdaM: make([]float64, cells),
	}
	return r
}

func grid(rows, cols int) [][]float64 {
	backing := make([]float64, rows*cols)
	g := make([][]float64, rows)
	for i := range g {
		g[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return g
}

func (r *Result) Cells() int    { return len(r.T) }
func (r *Result) NumTimes() int { return len(r.T[0]) }

// Sensors returns the simulated temperature at the sensor cells,
// indexed [time][sensor].
func (r *Result) Sensors() [][]float64 {
	out := grid(r.NumTimes(), len(r.SensorCells))
	r.SensorsInto(out)
	return out
}

// SensorsInto is Sensors writing into a preallocated [time][sensor] grid.
func (r *Result) SensorsInto(dst [][]float64) {
	for s, cell := range r.SensorCells {
		row := r.T[cell]
		for j := range dst {
			dst[j][s] = row[j]
		}
	}
}

// AtDepth returns the temperature series of the cell nearest to z.
func (r *Result) AtDepth(z float64) []float64 {
	best, dist := 0, math.Inf(1)
	for k, d := range r.Depths {
		if math.Abs(d-z) < dist {
			best, dist = k, math.Abs(d-z)
		}
	}
	return r.T[best]
}

// AdvectiveFlux returns ρw·cw·q·(T - 0°C) per cell and time.
func (r *Result) AdvectiveFlux() [][]float64 {
	out := grid(r.Cells(), r.NumTimes())
	for k := range out {
		for j := range out[k] {
			out[k][j] = physics.RhoW * physics.CW * r.Flux[k][j] * (r.T[k][j] - physics.ZeroCelsius)
		}
	}
	return out
}

// ConductiveFlux returns λm·∂T/∂z per cell and time.
func (r *Result) ConductiveFlux() [][]float64 {
	n, nt := r.Cells(), r.NumTimes()
	out := grid(n, nt)
	col := make([]float64, n)
	flux := make([]float64, n)
	p := &physics.Properties{LambdaM: r.LambdaM}
	for j := 0; j < nt; j++ {
		for k := 0; k < n; k++ {
			col[k] = r.T[k][j]
		}
		physics.ConductiveFlux(col, p, r.Dz, flux)
		for k := 0; k < n; k++ {
			out[k][j] = flux[k]
		}
	}
	return out
}

// Clone deep-copies the fields.
func (r *Result) Clone() *Result {
	c := NewResult(r.Cells(), r.NumTimes())
	c.CopyFrom(r)
	return c
}

// CopyFrom copies src into r. Both must share the same grid.
func (r *Result) CopyFrom(src *Result) {
	r.Depths, r.Times, r.SensorCells, r.Dz = src.Depths, src.Times, src.SensorCells, src.Dz
	copy(r.LambdaM, src.LambdaM)
	for k := range src.T {
		copy(r.H[k], src.H[k])
		copy(r.T[k], src.T[k])
		copy(r.Flux[k], src.Flux[k])
	}
}
