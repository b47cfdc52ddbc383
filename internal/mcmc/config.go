package mcmc

import (
	"fmt"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/metrics"
)

type Config struct {
	Chains     int `yaml:"chains" json:"chains"`
	Iterations int `yaml:"iterations" json:"iterations"`
	BurnIn     int `yaml:"burn_in" json:"burn_in"`
	// Cells overrides the grid of the calibrated column when positive.
	Cells int `yaml:"cells,omitempty" json:"cells,omitempty"`

	Delta int     `yaml:"delta" json:"delta"`
	NCR   int     `yaml:"ncr" json:"ncr"`
	C     float64 `yaml:"c" json:"c"`
	CStar float64 `yaml:"c_star" json:"c_star"`

	// FreezeCrossover stops crossover adaptation once burn-in ends.
	FreezeCrossover bool `yaml:"freeze_crossover,omitempty" json:"freeze_crossover,omitempty"`

	Quantiles []float64 `yaml:"quantiles" json:"quantiles"`
	Threshold float64   `yaml:"threshold" json:"threshold"`

	NoiseMode   metrics.NoiseMode `yaml:"noise_mode" json:"noise_mode"`
	Sigma2      float64           `yaml:"sigma2" json:"sigma2"`
	Sigma2Range [2]float64        `yaml:"sigma2_range" json:"sigma2_range"`
	Sigma2Step  float64           `yaml:"sigma2_step" json:"sigma2_step"`
	Remanence   int               `yaml:"remanence" json:"remanence"`

	SubsampleIter  int `yaml:"subsample_iter" json:"subsample_iter"`
	SubsampleSpace int `yaml:"subsample_space" json:"subsample_space"`
	SubsampleTime  int `yaml:"subsample_time" json:"subsample_time"`

	// MemoryBudget bounds the estimated trajectory storage in bytes; zero
	// disables the check.
	MemoryBudget int64  `yaml:"memory_budget" json:"memory_budget"`
	Seed         uint64 `yaml:"seed" json:"seed"`
	Workers      int    `yaml:"workers" json:"workers"`
}

func DefaultConfig() Config {
	return Config{
		Chains:         10,
		Iterations:     1000,
		BurnIn:         1000,
		Delta:          2,
		NCR:            3,
		C:              0.1,
		CStar:          1e-12,
		Quantiles:      []float64{0.05, 0.5, 0.95},
		Threshold:      1.2,
		NoiseMode:      metrics.NoiseKnown,
		Sigma2:         metrics.DefaultSigma2,
		Sigma2Range:    [2]float64{metrics.DefaultSigma2Min, metrics.DefaultSigma2Max},
		Sigma2Step:     metrics.DefaultSigma2Sigma,
		SubsampleIter:  10,
		SubsampleSpace: 1,
		SubsampleTime:  1,
		MemoryBudget:   8 << 30,
		Seed:           1,
	}
}

// Sigma2Prior returns the prior of the sampled noise variance.
func (c Config) Sigma2Prior() column.Prior {
	p := metrics.Sigma2Prior()
	if c.Sigma2Range != [2]float64{} {
		p.Range = c.Sigma2Range
	}
	if c.Sigma2Step > 0 {
		p.Sigma = c.Sigma2Step
	}
	return p
}

func (c Config) Validate() error {
	switch {
	case c.Chains < 1:
		return configErr("chains", "need at least one chain, got %d", c.Chains)
	case c.Iterations < 0 || c.BurnIn < 0:
		return configErr("iterations", "iteration counts must be non-negative")
	case c.Delta < 0:
		return configErr("delta", "must be non-negative, got %d", c.Delta)
	case c.NCR < 1:
		return configErr("ncr", "need at least one crossover bin, got %d", c.NCR)
	case c.C < 0 || c.CStar < 0:
		return configErr("c", "jump noise must be non-negative")
	case c.Threshold <= 1:
		return configErr("threshold", "must exceed 1, got %g", c.Threshold)
	case c.Remanence < 0:
		return configErr("remanence", "must be non-negative, got %d", c.Remanence)
	case c.SubsampleIter < 1 || c.SubsampleSpace < 1 || c.SubsampleTime < 1:
		return configErr("subsample", "cadences must be at least 1")
	}
	for _, q := range c.Quantiles {
		if q < 0 || q > 1 {
			return configErr("quantiles", "%g is not in [0, 1]", q)
		}
	}
	switch c.NoiseMode {
	case metrics.NoiseKnown, "":
		if c.Sigma2 <= 0 {
			return configErr("sigma2", "must be positive, got %g", c.Sigma2)
		}
	case metrics.NoiseUnknown:
	default:
		return configErr("noise_mode", "unknown mode %q", c.NoiseMode)
	}
	return nil
}

// pairs is the number of difference pairs δ' usable with the configured
// chain count.
func (c Config) pairs() int {
	return min(c.Delta, (c.Chains-1)/2)
}

func configErr(field, format string, args ...any) error {
	return &column.ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
