package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/physics"
	"github.com/san-kum/streamheat/internal/tridiag"
)

// Simulator time-marches the head and heat equations on one column.
// It keeps no per-run state, so Run is safe for concurrent use.
type Simulator struct {
	col   *column.Column
	cfg   Config
	tInit []float64
	pool  *WorkspacePool
}

func New(col *column.Column, cfg Config) (*Simulator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Simulator{
		col:   col,
		cfg:   cfg,
		tInit: col.InitialTemperature(),
		pool:  NewWorkspacePool(col.Cells, cfg.Alpha),
	}, nil
}

func validateConfig(cfg Config) error {
	if cfg.Alpha < physics.MinAlpha || cfg.Alpha > 1 {
		return &column.ConfigurationError{Field: "alpha", Reason: fmt.Sprintf("must be in [%g, 1], got %g", physics.MinAlpha, cfg.Alpha)}
	}
	if cfg.Viscosity == nil {
		return &column.ConfigurationError{Field: "viscosity", Reason: "no viscosity model"}
	}
	if cfg.MuUpdateEvery <= 0 {
		return &column.ConfigurationError{Field: "mu_update_every", Reason: fmt.Sprintf("must be positive, got %d", cfg.MuUpdateEvery)}
	}
	return nil
}

func (s *Simulator) Column() *column.Column { return s.col }

// Run solves the column for the given layers and returns fresh fields.
func (s *Simulator) Run(ctx context.Context, layers []column.Layer) (*Result, error) {
	res := NewResult(s.col.Cells, s.col.NumTimes())
	if err := s.RunInto(ctx, layers, res); err != nil {
		return nil, err
	}
	return res, nil
}

// RunInto solves the column and writes the fields into res, which must
// have been allocated for this column's grid.
func (s *Simulator) RunInto(ctx context.Context, layers []column.Layer, res *Result) error {
	col := s.col
	n, nt := col.Cells, col.NumTimes()
	if res.Cells() != n || res.NumTimes() != nt {
		return fmt.Errorf("sim: result grid %dx%d does not match column %dx%d", res.Cells(), res.NumTimes(), n, nt)
	}

	layers = column.CloneLayers(layers)
	column.SortLayers(layers)
	if err := column.CheckTiling(layers, col.Depth); err != nil {
		return err
	}
	ifaces, err := physics.ClassifyInterfaces(col.Z, col.Dz, layers)
	if err != nil {
		return err
	}

	ws := s.pool.Get()
	defer s.pool.Put(ws)

	dz := col.Dz
	props := ws.props
	physics.FillViscosity(s.cfg.Viscosity, s.tInit, ws.mu)
	props.Assign(layers, column.CellLayers(layers, col.Z), col.Depth, ws.mu)

	zLows := make([]float64, len(layers))
	for i, l := range layers {
		zLows[i] = l.ZLow
	}
	physics.SteadyHead(col.Z, zLows, props.LayerK, col.DH[0], col.HAq[0], ws.h)
	copy(ws.t, s.tInit)

	physics.Gradient(ws.h, col.DH[0], col.HAq[0], dz, ws.grad)
	physics.DarcyFlux(ws.h, ws.grad, props, ifaces, dz, ws.flux)
	store(res, 0, ws.h, ws.t, ws.flux)

	constant := col.ConstantDt()
	refresh := !physics.IsConstant(s.cfg.Viscosity)
	built := false

	for j := 0; j < nt-1; j++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		dt := col.Dt[j]

		if refresh && j > 0 && (j-1)%s.cfg.MuUpdateEvery == 0 {
			for k := 0; k < n; k++ {
				ws.mu[k] = s.cfg.Viscosity.Mu(res.T[k][j-1])
			}
			props.SetViscosity(ws.mu)
			built = false
		}

		if !constant || !built {
			ws.head.Build(props, ifaces, dz, dt)
			built = true
		}
		ws.head.Boundary(props, dz, col.DH[j], col.DH[j+1], col.HAq[j], col.HAq[j+1])
		ws.head.B.Mul(ws.h, ws.rhs)
		addInto(ws.rhs, ws.head.C)
		if err := solve(ws.solver, ws.head.A, ws.rhs, ws.hNext); err != nil {
			return &SolveError{Equation: "head", Step: j, Err: err}
		}

		physics.Gradient(ws.hNext, col.DH[j+1], col.HAq[j+1], dz, ws.grad)
		physics.DarcyFlux(ws.hNext, ws.grad, props, ifaces, dz, ws.flux)

		ws.heat.Build(props, ws.grad, dz, dt, col.TRiv[j], col.TRiv[j+1], col.TAq[j], col.TAq[j+1])
		ws.heat.B.Mul(ws.t, ws.rhs)
		addInto(ws.rhs, ws.heat.C)
		if err := solve(ws.solver, ws.heat.A, ws.rhs, ws.tNext); err != nil {
			return &SolveError{Equation: "heat", Step: j, Err: err}
		}

		ws.h, ws.hNext = ws.hNext, ws.h
		ws.t, ws.tNext = ws.tNext, ws.t
		store(res, j+1, ws.h, ws.t, ws.flux)
	}

	res.Depths = col.Z
	res.Times = col.Times
	res.SensorCells = col.SensorCells
	res.Dz = dz
	copy(res.LambdaM, props.LambdaM)
	return nil
}

// solve tries the Thomas algorithm, then one dense LU solve.
func solve(s *tridiag.Solver, m tridiag.Matrix, rhs, x []float64) error {
	err := s.SolveMatrix(m, rhs, x)
	if err == nil {
		return nil
	}
	if denseErr := tridiag.DenseSolveMatrix(m, rhs, x); denseErr != nil {
		return errors.Join(err, denseErr)
	}
	return nil
}

func addInto(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func store(res *Result, j int, h, t, flux []float64) {
	for k := range h {
		res.H[k][j] = h[k]
		res.T[k][j] = t[k]
		res.Flux[k][j] = flux[k]
	}
}
