package storage

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/mcmc"
)

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func writeCSV(path string, header []string, rows func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := rows(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// writeSensors writes time, then a simulated and a measured column per
// sensor.
func writeSensors(dir string, col *column.Column, simulated [][]float64) error {
	header := []string{"time"}
	for _, d := range col.SensorDepths {
		header = append(header, fmt.Sprintf("sim_%.3f", d), fmt.Sprintf("meas_%.3f", d))
	}
	return writeCSV(filepath.Join(dir, sensorsFile), header, func(w *csv.Writer) error {
		for j, t := range col.Times {
			row := []string{t.Format(time.RFC3339)}
			for s := range col.SensorDepths {
				row = append(row, formatFloat(simulated[j][s]), formatFloat(col.Measured[j][s]))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeQuantiles writes one row per depth and time with a column per level.
func writeQuantiles(dir string, depths []float64, times []time.Time, levels []float64, q map[float64][][]float64) error {
	levels = append([]float64(nil), levels...)
	sort.Float64s(levels)
	header := []string{"depth", "time"}
	for _, lv := range levels {
		header = append(header, fmt.Sprintf("q%g", lv))
	}
	return writeCSV(filepath.Join(dir, quantilesFile), header, func(w *csv.Writer) error {
		for k, z := range depths {
			for j, t := range times {
				row := []string{formatFloat(z), t.Format(time.RFC3339)}
				for _, lv := range levels {
					row = append(row, formatFloat(q[lv][k][j]))
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// writeSamples writes every recorded state: iteration, chain, energy,
// σ² and the params of every layer.
func writeSamples(dir string, run *mcmc.Run) error {
	header := []string{"iter", "chain", "energy", "sigma2"}
	for _, lp := range run.Priors {
		for _, p := range column.ParamNames {
			header = append(header, lp.Name+"."+p)
		}
	}
	return writeCSV(filepath.Join(dir, samplesFile), header, func(w *csv.Writer) error {
		for i, row := range run.States {
			for c, st := range row {
				rec := []string{strconv.Itoa(i), strconv.Itoa(c), formatFloat(st.Energy), formatFloat(st.Sigma2)}
				for _, l := range st.Layers {
					for _, v := range l.Params.Tuple() {
						rec = append(rec, formatFloat(v))
					}
				}
				if err := w.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("storage: %s is empty", path)
	}
	return records[0], records[1:], nil
}

// SensorSeries is the stored simulated and measured sensor temperatures,
// indexed [time][sensor].
type SensorSeries struct {
	Times     []time.Time
	Simulated [][]float64
	Measured  [][]float64
}

func (s *Store) LoadSensors(id string) (*SensorSeries, error) {
	dir, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	header, rows, err := readCSV(filepath.Join(dir, sensorsFile))
	if err != nil {
		return nil, err
	}
	ns := (len(header) - 1) / 2
	out := &SensorSeries{
		Times:     make([]time.Time, len(rows)),
		Simulated: make([][]float64, len(rows)),
		Measured:  make([][]float64, len(rows)),
	}
	for j, row := range rows {
		if out.Times[j], err = time.Parse(time.RFC3339, row[0]); err != nil {
			return nil, fmt.Errorf("storage: sensors row %d: %w", j+1, err)
		}
		out.Simulated[j] = make([]float64, ns)
		out.Measured[j] = make([]float64, ns)
		for s := 0; s < ns; s++ {
			if out.Simulated[j][s], err = parseFloat(row[1+2*s]); err != nil {
				return nil, fmt.Errorf("storage: sensors row %d: %w", j+1, err)
			}
			if out.Measured[j][s], err = parseFloat(row[2+2*s]); err != nil {
				return nil, fmt.Errorf("storage: sensors row %d: %w", j+1, err)
			}
		}
	}
	return out, nil
}

// QuantileTable is the stored temperature quantiles of a calibration.
type QuantileTable struct {
	Levels []float64
	Depths []float64
	Times  []time.Time
	// Values maps each level to a [depth][time] grid.
	Values map[float64][][]float64
}

// AtDepth returns the series of level q at the depth nearest to z.
func (t *QuantileTable) AtDepth(q, z float64) []float64 {
	best := 0
	for k, d := range t.Depths {
		if math.Abs(d-z) < math.Abs(t.Depths[best]-z) {
			best = k
		}
	}
	return t.Values[q][best]
}

func (s *Store) LoadQuantiles(id string) (*QuantileTable, error) {
	dir, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	header, rows, err := readCSV(filepath.Join(dir, quantilesFile))
	if err != nil {
		return nil, err
	}

	out := &QuantileTable{Values: map[float64][][]float64{}}
	for _, h := range header[2:] {
		lv, err := strconv.ParseFloat(h[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: quantile header %q: %w", h, err)
		}
		out.Levels = append(out.Levels, lv)
	}

	depthIdx := map[string]int{}
	timeIdx := map[string]int{}
	for _, row := range rows {
		if _, ok := depthIdx[row[0]]; !ok {
			z, err := parseFloat(row[0])
			if err != nil {
				return nil, err
			}
			depthIdx[row[0]] = len(out.Depths)
			out.Depths = append(out.Depths, z)
		}
		if _, ok := timeIdx[row[1]]; !ok {
			t, err := time.Parse(time.RFC3339, row[1])
			if err != nil {
				return nil, err
			}
			timeIdx[row[1]] = len(out.Times)
			out.Times = append(out.Times, t)
		}
	}

	for _, lv := range out.Levels {
		g := make([][]float64, len(out.Depths))
		for k := range g {
			g[k] = make([]float64, len(out.Times))
		}
		out.Values[lv] = g
	}
	for _, row := range rows {
		k, j := depthIdx[row[0]], timeIdx[row[1]]
		for i, lv := range out.Levels {
			v, err := parseFloat(row[2+i])
			if err != nil {
				return nil, err
			}
			out.Values[lv][k][j] = v
		}
	}
	return out, nil
}
