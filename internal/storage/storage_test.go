package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/mcmc"
	"github.com/san-kum/streamheat/internal/metrics"
	"github.com/san-kum/streamheat/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bed = column.Layer{Name: "bed", ZLow: 0.4, Params: column.Params{LogK: 12, Porosity: 0.2, LambdaS: 2, RhoCS: 4e6}}

func testColumn(t *testing.T) *column.Column {
	t.Helper()
	t0 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	nt := 12
	times := make([]time.Time, nt)
	dH := make([]float64, nt)
	tRiv := make([]float64, nt)
	sensors := make([][]float64, nt)
	for j := range times {
		times[j] = t0.Add(time.Duration(j) * 15 * time.Minute)
		dH[j] = 0.03
		tRiv[j] = 290 + 2*math.Sin(float64(j)/3)
		sensors[j] = []float64{289, 288, 287, 286}
	}
	col, err := column.FromSeries(times, dH, tRiv, sensors, column.Setup{
		SensorDepths: []float64{0.1, 0.2, 0.3, 0.4},
		Cells:        20,
	})
	require.NoError(t, err)
	return col
}

func forward(t *testing.T, col *column.Column) (*sim.Simulator, *sim.Result) {
	t.Helper()
	s, err := sim.New(col, sim.DefaultConfig())
	require.NoError(t, err)
	res, err := s.Run(context.Background(), []column.Layer{bed})
	require.NoError(t, err)
	return s, res
}

func TestSaveForward(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	col := testColumn(t)
	col.Measured[3][1] = math.NaN()
	_, res := forward(t, col)

	id, err := st.SaveForward("bed", col, []column.Layer{bed}, res)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	meta, err := st.Load(id)
	require.NoError(t, err)
	assert.Equal(t, KindForward, meta.Kind)
	assert.Equal(t, "bed", meta.Name)
	assert.Equal(t, 20, meta.Cells)
	assert.Equal(t, 12, meta.Times)
	assert.Equal(t, []column.Layer{bed}, meta.Layers)
	assert.Contains(t, meta.Metrics, "rmse")
	assert.Nil(t, meta.MCMC)

	series, err := st.LoadSensors(id)
	require.NoError(t, err)
	require.Len(t, series.Times, 12)
	assert.True(t, series.Times[0].Equal(col.Times[0]))
	simulated := res.Sensors()
	for j := range series.Simulated {
		for s := range series.Simulated[j] {
			assert.InDelta(t, simulated[j][s], series.Simulated[j][s], 1e-6)
		}
	}
	assert.True(t, math.IsNaN(series.Measured[3][1]))
	assert.Equal(t, col.Measured[0][2], series.Measured[0][2])
}

func TestSaveCalibration(t *testing.T) {
	st := New(t.TempDir())
	col := testColumn(t)
	s, truth := forward(t, col)
	col.Measured = truth.Sensors()

	var pp column.ParamPriors
	pp[0] = column.NewPrior(11, 13, 0.1)
	pp[1] = column.FixedPrior(0.2)
	pp[2] = column.FixedPrior(2)
	pp[3] = column.FixedPrior(4e6)
	pp[4] = column.FixedPrior(0)
	priors := []column.LayerPriors{{Name: "bed", ZLow: 0.4, Priors: pp}}

	cfg := mcmc.DefaultConfig()
	cfg.Chains = 3
	cfg.BurnIn = 4
	cfg.Iterations = 5
	cfg.SubsampleIter = 1
	cfg.Workers = 2
	engine, err := mcmc.New(cfg, mcmc.NewColumnTarget(s, &metrics.KnownVariance{}), nil)
	require.NoError(t, err)
	run, err := engine.Run(context.Background(), priors)
	require.NoError(t, err)

	best, ok := run.Best()
	require.True(t, ok)
	bestRes, err := s.Run(context.Background(), best.Layers)
	require.NoError(t, err)

	id, err := st.SaveCalibration("bed", col, cfg, run, bestRes)
	require.NoError(t, err)

	meta, err := st.Load(id[:8])
	require.NoError(t, err)
	assert.Equal(t, id, meta.ID)
	assert.Equal(t, KindCalibration, meta.Kind)
	require.NotNil(t, meta.MCMC)
	assert.Equal(t, cfg.Chains, meta.MCMC.Chains)
	assert.Len(t, meta.Acceptance, 3)
	assert.Equal(t, best.Layers, meta.Layers)
	assert.Equal(t, best.Energy, meta.BestEnergy)
	require.Len(t, meta.ParamQuantiles, 1)

	q, err := st.LoadQuantiles(id)
	require.NoError(t, err)
	assert.Equal(t, cfg.Quantiles, q.Levels)
	assert.Equal(t, len(run.Depths), len(q.Depths))
	assert.Equal(t, len(run.Times), len(q.Times))
	want := run.Quantiles()
	for _, lv := range q.Levels {
		for k := range q.Depths {
			for j := range q.Times {
				assert.InDelta(t, want[lv][k][j], q.Values[lv][k][j], 1e-6)
			}
		}
	}
	median := q.AtDepth(0.5, 0.2)
	assert.Len(t, median, len(q.Times))

	_, err = os.Stat(filepath.Join(st.baseDir, id, samplesFile))
	assert.NoError(t, err)
}

func TestListAndResolve(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	col := testColumn(t)
	_, res := forward(t, col)
	first, err := st.SaveForward("first", col, []column.Layer{bed}, res)
	require.NoError(t, err)
	second, err := st.SaveForward("second", col, []column.Layer{bed}, res)
	require.NoError(t, err)

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.ElementsMatch(t, []string{first, second}, []string{runs[0].ID, runs[1].ID})
	assert.False(t, runs[0].Timestamp.Before(runs[1].Timestamp))

	_, err = st.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Load("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	col := testColumn(t)
	col.Measured[0][0] = math.NaN()
	_, res := forward(t, col)
	id, err := st.SaveForward("bed", col, []column.Layer{bed}, res)
	require.NoError(t, err)

	data, err := st.Export(id)
	require.NoError(t, err)
	assert.NotNil(t, data.Sensors)
	assert.Nil(t, data.Quantiles)

	var buf bytes.Buffer
	require.NoError(t, ExportJSONTo(&buf, data))

	var decoded struct {
		Metadata RunMetadata `json:"metadata"`
		Sensors  struct {
			Measured [][]*float64 `json:"measured"`
		} `json:"sensors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, id, decoded.Metadata.ID)
	require.Len(t, decoded.Sensors.Measured, 12)
	assert.Nil(t, decoded.Sensors.Measured[0][0])
	require.NotNil(t, decoded.Sensors.Measured[0][1])
	assert.Equal(t, col.Measured[0][1], *decoded.Sensors.Measured[0][1])

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, ExportJSON(path, data))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
