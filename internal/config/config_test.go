package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/mcmc"
	"github.com/san-kum/streamheat/internal/physics"
)

const sampleYAML = `
name: test-site
column:
  pressure: pressure.csv
  temperature: temperature.csv
  sensor_depths: [0.1, 0.2, 0.3, 0.4]
  cells: 40
solver:
  viscosity: arrhenius
priors:
  - name: lower
    zlow: 0.4
    preset: clay
  - name: upper
    zlow: 0.2
    preset: gravel
    params:
      logk:
        range: [9, 10]
        sigma: 0.05
      source:
        fixed: 0
mcmc:
  chains: 6
  seed: 42
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Column.Cells != DefaultCells {
		t.Errorf("expected %d cells, got %d", DefaultCells, cfg.Column.Cells)
	}
	if cfg.Solver.Alpha != physics.Alpha {
		t.Errorf("expected alpha %g, got %g", physics.Alpha, cfg.Solver.Alpha)
	}
	if cfg.MCMC.Chains <= 0 {
		t.Error("chains should be positive")
	}
	if cfg.Column.Units != UnitsCelsius {
		t.Errorf("expected celsius, got %s", cfg.Column.Units)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "site.yaml", sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Name != "test-site" {
		t.Errorf("expected name test-site, got %s", cfg.Name)
	}
	if cfg.MCMC.Chains != 6 || cfg.MCMC.Seed != 42 {
		t.Errorf("expected chains 6 and seed 42, got %d and %d", cfg.MCMC.Chains, cfg.MCMC.Seed)
	}
	if cfg.MCMC.Threshold != mcmc.DefaultConfig().Threshold {
		t.Errorf("expected default threshold to survive, got %g", cfg.MCMC.Threshold)
	}
	if got := cfg.Path("pressure.csv"); got != filepath.Join(dir, "pressure.csv") {
		t.Errorf("expected path relative to config, got %s", got)
	}

	sc, err := cfg.SimConfig()
	if err != nil {
		t.Fatalf("sim config: %v", err)
	}
	if physics.IsConstant(sc.Viscosity) {
		t.Error("expected arrhenius viscosity")
	}

	priors, err := cfg.LayerPriors()
	if err != nil {
		t.Fatalf("priors: %v", err)
	}
	if len(priors) != 2 || priors[0].Name != "upper" {
		t.Fatalf("expected upper layer first, got %+v", priors)
	}
	if priors[0].Priors[0].Range != [2]float64{9, 10} {
		t.Errorf("expected overridden logk range, got %v", priors[0].Priors[0].Range)
	}
	if priors[0].Priors[1].Range != PriorPresets["gravel"][1].Range {
		t.Errorf("expected gravel porosity range, got %v", priors[0].Priors[1].Range)
	}
	if !priors[0].Priors[4].Fixed() {
		t.Error("expected fixed source")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Name = "roundtrip"
	cfg.Column.SensorDepths = []float64{0.15, 0.3}
	cfg.Layers = []column.Layer{{Name: "bed", ZLow: 0.3, Params: column.Params{LogK: 12, Porosity: 0.3, LambdaS: 2, RhoCS: 4e6}}}

	path := filepath.Join(dir, "out.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Name != "roundtrip" || len(loaded.Layers) != 1 || loaded.Layers[0].Params.LogK != 12 {
		t.Errorf("unexpected round trip result: %+v", loaded)
	}
}

func TestLayerPriorsErrors(t *testing.T) {
	tests := []struct {
		name  string
		layer PriorLayer
	}{
		{"unknown preset", PriorLayer{Name: "a", ZLow: 1, Preset: "marble"}},
		{"unknown param", PriorLayer{Name: "a", ZLow: 1, Params: map[string]PriorConfig{"colour": {}}}},
		{"reversed range", PriorLayer{Name: "a", ZLow: 1, Params: map[string]PriorConfig{"porosity": {Range: [2]float64{0.5, 0.1}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Priors = []PriorLayer{tt.layer}
			if _, err := cfg.LayerPriors(); !errors.Is(err, column.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}

	if _, err := DefaultConfig().LayerPriors(); !errors.Is(err, column.ErrConfiguration) {
		t.Errorf("expected configuration error without priors, got %v", err)
	}
}

func TestUnknownViscosity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Solver.Viscosity = "honey"
	if _, err := cfg.SimConfig(); !errors.Is(err, column.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestPresets(t *testing.T) {
	names := ListPriorPresets()
	expected := []string{"clay", "gravel", "sand", "silt"}
	if len(names) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, names)
	}
	for i := range names {
		if names[i] != expected[i] {
			t.Errorf("expected %s at %d, got %s", expected[i], i, names[i])
		}
		pp, ok := GetPriorPreset(names[i])
		if !ok {
			t.Fatalf("missing preset %s", names[i])
		}
		if err := pp.Validate(); err != nil {
			t.Errorf("preset %s is invalid: %v", names[i], err)
		}
	}

	cfg := mcmc.DefaultConfig()
	if !ApplyMCMCPreset(&cfg, "quick") {
		t.Fatal("expected quick preset")
	}
	if cfg.Chains != 4 || cfg.BurnIn != 100 {
		t.Errorf("expected quick run size, got %d chains and %d burn-in", cfg.Chains, cfg.BurnIn)
	}
	if cfg.Threshold != mcmc.DefaultConfig().Threshold {
		t.Error("preset should not touch the threshold")
	}
	if ApplyMCMCPreset(&cfg, "forever") {
		t.Error("expected unknown preset to fail")
	}
	if got := ListMCMCPresets(); len(got) != 3 || got[0] != "quick" {
		t.Errorf("unexpected mcmc presets %v", got)
	}
}

func TestBuildColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pressure.csv", "time,dH,T_riv\n"+
		"2024-07-01T00:00:00Z,0.05,20\n"+
		"2024-07-01T00:15:00Z,0.05,20.5\n"+
		"2024-07-01T00:30:00Z,0.04,21\n")
	writeFile(t, dir, "temperature.csv", "time,T1,T2,T3,T_aq\n"+
		"2024-07-01T00:00:00Z,19,18,17,12\n"+
		"2024-07-01T00:15:00Z,19.1,,17,12\n"+
		"2024-07-01T00:30:00Z,19.2,18.1,NaN,12\n")
	path := writeFile(t, dir, "site.yaml", sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	col, err := cfg.BuildColumn()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if col.NumTimes() != 3 || col.Cells != 40 {
		t.Errorf("expected 3 times on 40 cells, got %d on %d", col.NumTimes(), col.Cells)
	}
	if math.Abs(col.TRiv[1]-(20.5+physics.ZeroCelsius)) > 1e-9 {
		t.Errorf("expected river temperature in kelvin, got %g", col.TRiv[1])
	}
	if math.Abs(col.TAq[0]-(12+physics.ZeroCelsius)) > 1e-9 {
		t.Errorf("expected aquifer temperature in kelvin, got %g", col.TAq[0])
	}
	if !math.IsNaN(col.Measured[1][1]) || !math.IsNaN(col.Measured[2][2]) {
		t.Error("expected missing measurements as NaN")
	}
	if col.Dt[0] != 900 {
		t.Errorf("expected 900 s steps, got %g", col.Dt[0])
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in       string
		expected time.Time
	}{
		{"2024-07-01T12:00:00Z", time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)},
		{"0", time.Unix(0, 0).UTC()},
		{"1.5", time.Unix(1, 5e8).UTC()},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.expected) {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.expected, got)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("expected an error for a bad timestamp")
	}
}

func TestMalformedCSV(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.csv", "time,dH,T_riv\n2024-07-01T00:00:00Z,abc,20\n")
	if _, err := LoadPressure(bad, 0); !errors.Is(err, ErrMalformedCSV) {
		t.Errorf("expected malformed csv error, got %v", err)
	}
	empty := writeFile(t, dir, "empty.csv", "")
	if _, err := LoadTemperature(empty, 0); !errors.Is(err, ErrMalformedCSV) {
		t.Errorf("expected malformed csv error, got %v", err)
	}
}
