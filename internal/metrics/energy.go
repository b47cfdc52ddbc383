package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/streamheat/internal/column"
)

// ErrUnknownMode is returned by New for an unrecognised noise mode.
var ErrUnknownMode = errors.New("metrics: unknown noise mode")

// NoiseMode selects whether the measurement noise variance is a fixed
// input or a sampled parameter.
type NoiseMode string

const (
	NoiseKnown   NoiseMode = "known"
	NoiseUnknown NoiseMode = "unknown"
)

// Default noise variance settings, in K².
const (
	DefaultSigma2      = 1.0
	DefaultSigma2Min   = 0.01
	DefaultSigma2Max   = 1.0
	DefaultSigma2Sigma = 0.01
)

// Energy is the negative log-likelihood of simulated sensor temperatures
// given measurements. Both grids are indexed [time][sensor].
type Energy interface {
	Energy(sim, meas [][]float64, sigma2 float64) float64
	Mode() NoiseMode
}

// New returns the energy model for mode. prior is only used for
// NoiseUnknown.
func New(mode NoiseMode, remanence int, prior column.Prior) (Energy, error) {
	switch mode {
	case NoiseKnown, "":
		return &KnownVariance{Remanence: remanence}, nil
	case NoiseUnknown:
		if err := prior.Validate("sigma2"); err != nil {
			return nil, err
		}
		if prior.Range[0] <= 0 {
			return nil, &column.ConfigurationError{Field: "sigma2", Reason: "range must be strictly positive"}
		}
		return &UnknownVariance{Remanence: remanence, Prior: prior}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// Sigma2Prior is the default prior of a sampled noise variance: uniform
// range with a scale-invariant 1/σ² density.
func Sigma2Prior() column.Prior {
	return column.Prior{
		Range:   [2]float64{DefaultSigma2Min, DefaultSigma2Max},
		Sigma:   DefaultSigma2Sigma,
		Scale:   column.ScaleLinear,
		Density: column.InverseDensity,
	}
}

// KnownVariance is 0.5·Σ(sim-meas)²/σ² over the samples at or after
// Remanence. Missing measurements (NaN) are skipped.
type KnownVariance struct {
	Remanence int
}

func (e *KnownVariance) Energy(sim, meas [][]float64, sigma2 float64) float64 {
	sse, _ := sumSquares(sim, meas, e.Remanence)
	return 0.5 * sse / sigma2
}

func (e *KnownVariance) Mode() NoiseMode { return NoiseKnown }

// UnknownVariance adds the normalisation and prior terms of a sampled σ²:
//
//	0.5·Σr²/σ² + 0.5·N·log σ² - log p(σ²)
type UnknownVariance struct {
	Remanence int
	Prior     column.Prior
}

func (e *UnknownVariance) Energy(sim, meas [][]float64, sigma2 float64) float64 {
	sse, n := sumSquares(sim, meas, e.Remanence)
	return 0.5*sse/sigma2 + 0.5*float64(n)*math.Log(sigma2) - e.Prior.LogDensity(sigma2)
}

func (e *UnknownVariance) Mode() NoiseMode { return NoiseUnknown }

func sumSquares(sim, meas [][]float64, from int) (float64, int) {
	var sse float64
	n := 0
	for t := from; t < len(meas) && t < len(sim); t++ {
		row := meas[t]
		for s, m := range row {
			r := sim[t][s] - m
			if math.IsNaN(r) {
				continue
			}
			sse += r * r
			n++
		}
	}
	return sse, n
}

// LogAcceptance is the Metropolis log acceptance probability of moving
// from energy prev to energy next.
func LogAcceptance(prev, next float64) float64 {
	return math.Min(0, prev-next)
}
