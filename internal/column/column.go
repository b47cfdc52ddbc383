package column

import (
	"math"
	"time"
)

const (
	// Epsilon is the depth tolerance used for interface and tiling checks.
	Epsilon = 1e-10

	DefaultCells = 100
)

// InitMode selects how the initial temperature profile is interpolated
// between the measured points.
type InitMode string

const (
	InitLinear   InitMode = "linear"
	InitLagrange InitMode = "lagrange"
)

// PressureRecord is one river-side sample: the head differential between
// river and aquifer and the river temperature.
type PressureRecord struct {
	Time time.Time
	DH   float64
	TRiv float64
}

// TemperatureRecord holds one sample of every buried sensor, shallowest
// first. The last value is the deepest sensor and serves as the aquifer
// boundary temperature.
type TemperatureRecord struct {
	Time    time.Time
	Sensors []float64
}

// Setup describes the sensor geometry and grid resolution.
type Setup struct {
	// SensorDepths are the buried sensor depths below the pressure probe,
	// deepest last. The deepest sensor defines the column bottom.
	SensorDepths []float64
	// Offset shifts all buried sensors; the river sensor stays at z = 0.
	Offset   float64
	Cells    int
	InitMode InitMode
}

// Column is the 1D streambed domain with its grids, boundary series and
// measurements. It is read-only once built.
type Column struct {
	Times []time.Time
	Dt    []float64 // seconds, len(Times)-1

	DH   []float64 // river head, top boundary
	HAq  []float64 // aquifer head, bottom boundary
	TRiv []float64
	TAq  []float64

	// Measured is indexed [time][sensor] for the interior sensors.
	Measured [][]float64

	// SensorDepths are the real depths of the interior sensors.
	SensorDepths []float64
	SensorCells  []int

	Depth float64
	Cells int
	Dz    float64
	Z     []float64 // cell centres

	InitMode InitMode
}

// New builds a column from pressure and temperature records sharing the
// same timestamps.
func New(pressure []PressureRecord, temps []TemperatureRecord, setup Setup) (*Column, error) {
	if len(pressure) != len(temps) {
		return nil, configErr("series", "%d pressure records but %d temperature records", len(pressure), len(temps))
	}
	times := make([]time.Time, len(pressure))
	dH := make([]float64, len(pressure))
	tRiv := make([]float64, len(pressure))
	sensors := make([][]float64, len(temps))
	for i := range pressure {
		if !pressure[i].Time.Equal(temps[i].Time) {
			return nil, configErr("series", "timestamp mismatch at record %d", i)
		}
		times[i] = pressure[i].Time
		dH[i] = pressure[i].DH
		tRiv[i] = pressure[i].TRiv
		sensors[i] = temps[i].Sensors
	}
	return FromSeries(times, dH, tRiv, sensors, setup)
}

// FromSeries builds a column from aligned series. Each row of sensors
// holds the buried sensors, deepest (aquifer) last.
func FromSeries(times []time.Time, dH, tRiv []float64, sensors [][]float64, setup Setup) (*Column, error) {
	nt := len(times)
	if nt < 2 {
		return nil, configErr("series", "need at least two timestamps, got %d", nt)
	}
	if len(dH) != nt || len(tRiv) != nt || len(sensors) != nt {
		return nil, configErr("series", "boundary series lengths (%d, %d, %d) do not match %d timestamps",
			len(dH), len(tRiv), len(sensors), nt)
	}
	ns := len(setup.SensorDepths)
	if ns < 1 {
		return nil, configErr("sensors", "at least the aquifer sensor depth is required")
	}
	prev := 0.0
	for i, d := range setup.SensorDepths {
		if d+setup.Offset <= prev {
			return nil, configErr("sensors", "sensor %d at %g is not below %g", i, d+setup.Offset, prev)
		}
		prev = d + setup.Offset
	}

	col := &Column{
		Times:    times,
		Dt:       make([]float64, nt-1),
		DH:       dH,
		HAq:      make([]float64, nt),
		TRiv:     tRiv,
		TAq:      make([]float64, nt),
		Measured: make([][]float64, nt),
		Depth:    prev,
		InitMode: setup.InitMode,
	}
	if col.InitMode == "" {
		col.InitMode = InitLinear
	}
	if col.InitMode != InitLinear && col.InitMode != InitLagrange {
		return nil, configErr("init_mode", "unknown mode %q", col.InitMode)
	}

	for j := 0; j < nt-1; j++ {
		dt := times[j+1].Sub(times[j]).Seconds()
		if dt <= 0 {
			return nil, configErr("series", "timestamps must increase strictly (index %d)", j+1)
		}
		col.Dt[j] = dt
	}
	for j, row := range sensors {
		if len(row) != ns {
			return nil, configErr("series", "temperature row %d has %d values, expected %d", j, len(row), ns)
		}
		col.TAq[j] = row[ns-1]
		col.Measured[j] = row[:ns-1]
	}
	for _, v := range [][]float64{dH, tRiv, col.TAq} {
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, configErr("series", "boundary series contain non-finite values")
			}
		}
	}

	col.SensorDepths = make([]float64, ns-1)
	for i := range col.SensorDepths {
		col.SensorDepths[i] = setup.SensorDepths[i] + setup.Offset
	}

	cells := setup.Cells
	if cells == 0 {
		cells = DefaultCells
	}
	if err := col.setGrid(cells); err != nil {
		return nil, err
	}
	return col, nil
}

func (c *Column) setGrid(cells int) error {
	if cells < 3 {
		return configErr("cells", "need at least 3 cells, got %d", cells)
	}
	c.Cells = cells
	c.Dz = c.Depth / float64(cells)
	c.Z = make([]float64, cells)
	for k := range c.Z {
		c.Z[k] = c.Dz/2 + float64(k)*c.Dz
	}
	c.SensorCells = make([]int, len(c.SensorDepths))
	for i, d := range c.SensorDepths {
		c.SensorCells[i] = nearest(c.Z, d)
	}
	return nil
}

// WithCells returns a copy of the column on a grid of n cells. Series are
// shared with the receiver.
func (c *Column) WithCells(n int) (*Column, error) {
	cp := *c
	if err := cp.setGrid(n); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (c *Column) NumTimes() int { return len(c.Times) }

// ConstantDt reports whether all timesteps are equal.
func (c *Column) ConstantDt() bool {
	for _, dt := range c.Dt {
		if dt != c.Dt[0] {
			return false
		}
	}
	return true
}

// Elapsed returns the time of every sample in seconds since the first.
func (c *Column) Elapsed() []float64 {
	out := make([]float64, len(c.Times))
	for j := 1; j < len(out); j++ {
		out[j] = out[j-1] + c.Dt[j-1]
	}
	return out
}

// InitialTemperature interpolates the first sample of every sensor,
// river on top and aquifer at the bottom, onto the cell centres.
func (c *Column) InitialTemperature() []float64 {
	xs := make([]float64, 0, len(c.SensorDepths)+2)
	ys := make([]float64, 0, len(c.SensorDepths)+2)
	xs = append(xs, 0)
	ys = append(ys, c.TRiv[0])
	for i, d := range c.SensorDepths {
		v := c.Measured[0][i]
		if math.IsNaN(v) {
			continue
		}
		xs = append(xs, d)
		ys = append(ys, v)
	}
	xs = append(xs, c.Depth)
	ys = append(ys, c.TAq[0])

	out := make([]float64, c.Cells)
	for k, z := range c.Z {
		if c.InitMode == InitLagrange {
			out[k] = lagrange(xs, ys, z)
		} else {
			out[k] = linear(xs, ys, z)
		}
	}
	return out
}

func nearest(z []float64, d float64) int {
	best, bestDist := 0, math.Inf(1)
	for k, zk := range z {
		if dist := math.Abs(zk - d); dist < bestDist {
			best, bestDist = k, dist
		}
	}
	return best
}

func linear(xs, ys []float64, x float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	for i := 1; i < len(xs); i++ {
		if x <= xs[i] {
			w := (x - xs[i-1]) / (xs[i] - xs[i-1])
			return ys[i-1] + w*(ys[i]-ys[i-1])
		}
	}
	return ys[len(ys)-1]
}

func lagrange(xs, ys []float64, x float64) float64 {
	sum := 0.0
	for i := range xs {
		term := ys[i]
		for j := range xs {
			if j != i {
				term *= (x - xs[j]) / (xs[i] - xs[j])
			}
		}
		sum += term
	}
	return sum
}
