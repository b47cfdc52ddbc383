package storage

import (
	"fmt"
	"math"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/mcmc"
	"github.com/san-kum/streamheat/internal/metrics"
	"github.com/san-kum/streamheat/internal/sim"
)

// SaveForward stores a forward run with its sensor series and fit
// metrics against the measurements of col.
func (s *Store) SaveForward(name string, col *column.Column, layers []column.Layer, res *sim.Result) (string, error) {
	meta, dir, err := s.newRun(KindForward, name)
	if err != nil {
		return "", err
	}
	fillColumn(&meta, col)
	meta.Layers = layers

	simulated := res.Sensors()
	addRMSE(meta.Metrics, simulated, col.Measured)

	if err := writeSensors(dir, col, simulated); err != nil {
		return "", err
	}
	if err := writeMetadata(dir, &meta); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// SaveCalibration stores a calibration: metadata with the best sample,
// the temperature quantiles, the posterior samples and the sensor series
// of the best sample's forward run.
func (s *Store) SaveCalibration(name string, col *column.Column, cfg mcmc.Config, run *mcmc.Run, best *sim.Result) (string, error) {
	meta, dir, err := s.newRun(KindCalibration, name)
	if err != nil {
		return "", err
	}
	fillColumn(&meta, col)

	cfgCopy := cfg
	meta.MCMC = &cfgCopy
	meta.Acceptance = run.Acceptance
	meta.Converged = run.Converged
	meta.BurnInIterations = run.BurnInIterations
	meta.RHat = run.RHat
	meta.ParamQuantiles = run.ParamQuantiles()

	if st, ok := run.Best(); ok {
		meta.Layers = st.Layers
		meta.BestEnergy = st.Energy
		meta.BestSigma2 = st.Sigma2
	}

	if best != nil {
		simulated := best.Sensors()
		addRMSE(meta.Metrics, simulated, col.Measured)
		if err := writeSensors(dir, col, simulated); err != nil {
			return "", err
		}
	}
	if len(run.Temperatures) > 0 {
		if err := writeQuantiles(dir, run.Depths, run.Times, run.QuantileLevels(), run.Quantiles()); err != nil {
			return "", err
		}
	}
	if err := writeSamples(dir, run); err != nil {
		return "", err
	}
	if err := writeMetadata(dir, &meta); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func fillColumn(meta *RunMetadata, col *column.Column) {
	meta.Cells = col.Cells
	meta.Times = col.NumTimes()
	meta.Depth = col.Depth
	meta.SensorDepths = col.SensorDepths
}

func addRMSE(m map[string]float64, simulated, measured [][]float64) {
	per, total := metrics.RMSE(simulated, measured)
	for i, v := range per {
		if !math.IsNaN(v) {
			m[fmt.Sprintf("rmse_%d", i+1)] = v
		}
	}
	if !math.IsNaN(total) {
		m["rmse"] = total
	}
}
