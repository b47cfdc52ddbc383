package storage

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"time"
)

// ExportData bundles everything stored for a run.
type ExportData struct {
	Metadata  *RunMetadata   `json:"metadata"`
	Sensors   *SensorSeries  `json:"sensors,omitempty"`
	Quantiles *QuantileTable `json:"quantiles,omitempty"`
}

// Export collects the stored files of a run. Missing optional files are
// left out.
func (s *Store) Export(id string) (*ExportData, error) {
	meta, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	data := &ExportData{Metadata: meta}
	if sensors, err := s.LoadSensors(meta.ID); err == nil {
		data.Sensors = sensors
	}
	if meta.Kind == KindCalibration {
		if q, err := s.LoadQuantiles(meta.ID); err == nil {
			data.Quantiles = q
		}
	}
	return data, nil
}

func ExportJSON(path string, data *ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSONTo(file, data)
}

func ExportJSONTo(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// MarshalJSON writes missing readings as null.
func (s *SensorSeries) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Times     []time.Time  `json:"times"`
		Simulated [][]*float64 `json:"simulated"`
		Measured  [][]*float64 `json:"measured"`
	}{s.Times, nullable(s.Simulated), nullable(s.Measured)})
}

func (t *QuantileTable) MarshalJSON() ([]byte, error) {
	values := make(map[string][][]*float64, len(t.Values))
	for lv, g := range t.Values {
		values[formatFloat(lv)] = nullable(g)
	}
	return json.Marshal(struct {
		Levels []float64               `json:"levels"`
		Depths []float64               `json:"depths"`
		Times  []time.Time             `json:"times"`
		Values map[string][][]*float64 `json:"values"`
	}{t.Levels, t.Depths, t.Times, values})
}

func nullable(g [][]float64) [][]*float64 {
	out := make([][]*float64, len(g))
	for i, row := range g {
		out[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				out[i][j] = &row[j]
			}
		}
	}
	return out
}
