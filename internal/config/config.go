package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/mcmc"
	"github.com/san-kum/streamheat/internal/physics"
	"github.com/san-kum/streamheat/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCells     = column.DefaultCells
	DefaultViscosity = "constant"
	DefaultUnits     = UnitsCelsius
	DefaultOutput    = "runs"
	DefaultPrior     = "sand"
)

// Units of the temperatures in the measurement files.
type Units string

const (
	UnitsCelsius Units = "celsius"
	UnitsKelvin  Units = "kelvin"
)

type Config struct {
	Name   string         `yaml:"name"`
	Column ColumnConfig   `yaml:"column"`
	Solver SolverConfig   `yaml:"solver"`
	Layers []column.Layer `yaml:"layers,omitempty"`
	Priors []PriorLayer   `yaml:"priors,omitempty"`
	MCMC   mcmc.Config    `yaml:"mcmc"`
	Output string         `yaml:"output"`

	// dir resolves relative data paths; it is the directory of the loaded file
	dir string
}

type ColumnConfig struct {
	Pressure     string          `yaml:"pressure"`
	Temperature  string          `yaml:"temperature"`
	Units        Units           `yaml:"units"`
	SensorDepths []float64       `yaml:"sensor_depths"`
	Offset       float64         `yaml:"offset"`
	Cells        int             `yaml:"cells"`
	InitMode     column.InitMode `yaml:"init_mode"`
}

type SolverConfig struct {
	Alpha         float64 `yaml:"alpha"`
	Viscosity     string  `yaml:"viscosity"`
	MuUpdateEvery int     `yaml:"mu_update_every"`
}

// PriorLayer describes the priors of one layer: a preset, optionally
// overridden per parameter.
type PriorLayer struct {
	Name   string                 `yaml:"name"`
	ZLow   float64                `yaml:"zlow"`
	Preset string                 `yaml:"preset,omitempty"`
	Params map[string]PriorConfig `yaml:"params,omitempty"`
}

// PriorConfig is the YAML form of a column.Prior. Setting Fixed pins the
// parameter and ignores the other fields.
type PriorConfig struct {
	Range [2]float64   `yaml:"range"`
	Sigma float64      `yaml:"sigma"`
	Scale column.Scale `yaml:"scale,omitempty"`
	Fixed *float64     `yaml:"fixed,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Column: ColumnConfig{
			Units:    DefaultUnits,
			Cells:    DefaultCells,
			InitMode: column.InitLinear,
		},
		Solver: SolverConfig{
			Alpha:         physics.Alpha,
			Viscosity:     DefaultViscosity,
			MuUpdateEvery: physics.MuUpdateEvery,
		},
		MCMC:   mcmc.DefaultConfig(),
		Output: DefaultOutput,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Path resolves a data path relative to the configuration file.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Setup returns the column geometry.
func (c *Config) Setup() column.Setup {
	return column.Setup{
		SensorDepths: c.Column.SensorDepths,
		Offset:       c.Column.Offset,
		Cells:        c.Column.Cells,
		InitMode:     c.Column.InitMode,
	}
}

// BuildColumn reads the measurement files and builds the column.
func (c *Config) BuildColumn() (*column.Column, error) {
	if c.Column.Pressure == "" || c.Column.Temperature == "" {
		return nil, &column.ConfigurationError{Field: "column", Reason: "pressure and temperature files are required"}
	}
	offset := 0.0
	if c.Column.Units != UnitsKelvin {
		offset = physics.ZeroCelsius
	}
	pressure, err := LoadPressure(c.Path(c.Column.Pressure), offset)
	if err != nil {
		return nil, err
	}
	temps, err := LoadTemperature(c.Path(c.Column.Temperature), offset)
	if err != nil {
		return nil, err
	}
	return column.New(pressure, temps, c.Setup())
}

// SimConfig returns the forward solver settings.
func (c *Config) SimConfig() (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if c.Solver.Alpha != 0 {
		cfg.Alpha = c.Solver.Alpha
	}
	if c.Solver.MuUpdateEvery != 0 {
		cfg.MuUpdateEvery = c.Solver.MuUpdateEvery
	}
	v, ok := physics.ViscosityByName(c.Solver.Viscosity)
	if !ok {
		return sim.Config{}, &column.ConfigurationError{Field: "solver.viscosity", Reason: fmt.Sprintf("unknown model %q", c.Solver.Viscosity)}
	}
	cfg.Viscosity = v
	return cfg, nil
}

// LayerPriors resolves the prior layers, sorted by depth.
func (c *Config) LayerPriors() ([]column.LayerPriors, error) {
	if len(c.Priors) == 0 {
		return nil, &column.ConfigurationError{Field: "priors", Reason: "no prior layers"}
	}
	out := make([]column.LayerPriors, len(c.Priors))
	for i, pl := range c.Priors {
		lp, err := pl.Resolve()
		if err != nil {
			return nil, err
		}
		out[i] = lp
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZLow < out[j].ZLow })
	return out, nil
}

// Resolve starts from the named preset (sand by default) and applies
// the per-parameter overrides.
func (pl PriorLayer) Resolve() (column.LayerPriors, error) {
	name := pl.Preset
	if name == "" {
		name = DefaultPrior
	}
	pp, ok := GetPriorPreset(name)
	if !ok {
		return column.LayerPriors{}, &column.ConfigurationError{Field: "priors." + pl.Name, Reason: fmt.Sprintf("unknown preset %q", name)}
	}
	for key, pc := range pl.Params {
		idx := paramIndex(key)
		if idx < 0 {
			return column.LayerPriors{}, &column.ConfigurationError{Field: "priors." + pl.Name, Reason: fmt.Sprintf("unknown parameter %q", key)}
		}
		pp[idx] = pc.Prior()
	}
	if err := pp.Validate(); err != nil {
		return column.LayerPriors{}, err
	}
	return column.LayerPriors{Name: pl.Name, ZLow: pl.ZLow, Priors: pp}, nil
}

func (pc PriorConfig) Prior() column.Prior {
	if pc.Fixed != nil {
		return column.FixedPrior(*pc.Fixed)
	}
	p := column.NewPrior(pc.Range[0], pc.Range[1], pc.Sigma)
	if pc.Scale != "" {
		p.Scale = pc.Scale
	}
	return p
}

func paramIndex(name string) int {
	for i, n := range column.ParamNames {
		if n == name {
			return i
		}
	}
	return -1
}

// Validate checks the parts of the configuration used by every command.
func (c *Config) Validate() error {
	if len(c.Column.SensorDepths) == 0 {
		return &column.ConfigurationError{Field: "column.sensor_depths", Reason: "at least the aquifer sensor is required"}
	}
	switch c.Column.Units {
	case UnitsCelsius, UnitsKelvin, "":
	default:
		return &column.ConfigurationError{Field: "column.units", Reason: fmt.Sprintf("unknown units %q", c.Column.Units)}
	}
	if _, err := c.SimConfig(); err != nil {
		return err
	}
	if len(c.Priors) > 0 {
		if _, err := c.LayerPriors(); err != nil {
			return err
		}
	}
	return c.MCMC.Validate()
}
