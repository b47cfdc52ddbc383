package column

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Scale selects the space in which a prior is sampled and perturbed.
type Scale string

const (
	ScaleLinear Scale = "linear"
	ScaleLog    Scale = "log"
	ScaleSymlog Scale = "symlog"
	ScaleAuto   Scale = "auto"
)

const (
	// ranges wider than this ratio are sampled in log10 space by ScaleAuto
	logScaleRatio = 100.0
	// ranges crossing zero with a smaller magnitude use symlog under ScaleAuto
	symlogMagnitude = 1.0
	// symlog is linear within max(|lo|,|hi|)/symlogLinthreshRatio of zero
	symlogLinthreshRatio = 100.0
)

// Prior describes how one parameter is drawn and perturbed. Range and
// Sigma are given in physical units; Sample, Perturb and Wrap work in
// the scaled space selected by Scale.
type Prior struct {
	Range   [2]float64
	Sigma   float64
	Scale   Scale
	Density func(float64) float64
}

// NewPrior returns a prior on [lo, hi] with perturbation step sigma.
func NewPrior(lo, hi, sigma float64) Prior {
	return Prior{Range: [2]float64{lo, hi}, Sigma: sigma, Scale: ScaleLinear}
}

// FixedPrior pins a parameter to v.
func FixedPrior(v float64) Prior {
	return Prior{Range: [2]float64{v, v}, Scale: ScaleLinear}
}

// InverseDensity is the scale-invariant 1/x density used for variances.
func InverseDensity(x float64) float64 {
	return 1 / x
}

func (p Prior) Fixed() bool {
	return p.Range[0] == p.Range[1]
}

func (p Prior) Validate(name string) error {
	lo, hi := p.Range[0], p.Range[1]
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return configErr(name, "prior range must be finite")
	}
	if lo > hi {
		return configErr(name, "prior range [%g, %g] is reversed", lo, hi)
	}
	if p.Sigma < 0 || math.IsNaN(p.Sigma) {
		return configErr(name, "prior sigma must be non-negative, got %g", p.Sigma)
	}
	switch p.scale() {
	case ScaleLinear, ScaleSymlog:
	case ScaleLog:
		if lo <= 0 {
			return configErr(name, "log-scaled prior needs a positive range, got [%g, %g]", lo, hi)
		}
	default:
		return configErr(name, "unknown prior scale %q", p.Scale)
	}
	return nil
}

// scale resolves ScaleAuto and the empty value.
func (p Prior) scale() Scale {
	switch p.Scale {
	case "":
		return ScaleLinear
	case ScaleAuto:
		lo, hi := p.Range[0], p.Range[1]
		switch {
		case p.Fixed():
			return ScaleLinear
		case lo <= 0 && hi > 0:
			if math.Max(math.Abs(lo), math.Abs(hi)) < symlogMagnitude {
				return ScaleSymlog
			}
			return ScaleLinear
		case lo > 0 && hi/lo > logScaleRatio:
			return ScaleLog
		}
		return ScaleLinear
	}
	return p.Scale
}

func (p Prior) linthresh() float64 {
	return math.Max(math.Abs(p.Range[0]), math.Abs(p.Range[1])) / symlogLinthreshRatio
}

// FromPhysical maps a physical value into the sampling space.
func (p Prior) FromPhysical(v float64) float64 {
	switch p.scale() {
	case ScaleLog:
		return math.Log10(v)
	case ScaleSymlog:
		t := p.linthresh()
		a := math.Abs(v)
		if a > t {
			return math.Copysign(1+math.Log10(a/t), v)
		}
		return v / t
	}
	return v
}

// ToPhysical is the inverse of FromPhysical.
func (p Prior) ToPhysical(s float64) float64 {
	switch p.scale() {
	case ScaleLog:
		return math.Pow(10, s)
	case ScaleSymlog:
		t := p.linthresh()
		a := math.Abs(s)
		if a > 1 {
			return math.Copysign(t*math.Pow(10, a-1), s)
		}
		return t * s
	}
	return s
}

// Bounds returns the range in sampling space.
func (p Prior) Bounds() (lo, hi float64) {
	return p.FromPhysical(p.Range[0]), p.FromPhysical(p.Range[1])
}

// Step returns the perturbation sigma translated into sampling space,
// measured around the centre of the range.
func (p Prior) Step() float64 {
	switch p.scale() {
	case ScaleLog:
		centre := math.Sqrt(p.Range[0] * p.Range[1])
		return math.Abs(p.FromPhysical(centre+p.Sigma) - p.FromPhysical(centre))
	case ScaleSymlog:
		centre := (p.Range[0] + p.Range[1]) / 2
		return math.Abs(p.FromPhysical(centre+p.Sigma) - p.FromPhysical(centre))
	}
	return p.Sigma
}

// Sample draws uniformly over the range in sampling space.
func (p Prior) Sample(src rand.Source) float64 {
	lo, hi := p.Bounds()
	if lo == hi {
		return lo
	}
	return distuv.Uniform{Min: lo, Max: hi, Src: src}.Rand()
}

// Perturb adds a Gaussian step to a sampling-space value and wraps the
// result back into range.
func (p Prior) Perturb(src rand.Source, v float64) float64 {
	if p.Fixed() {
		lo, _ := p.Bounds()
		return lo
	}
	step := p.Step()
	if step == 0 {
		return p.Wrap(v)
	}
	return p.Wrap(v + distuv.Normal{Mu: 0, Sigma: step, Src: src}.Rand())
}

// Wrap folds a sampling-space value periodically into range. Values
// leaving through one bound re-enter through the other; nothing is clamped.
func (p Prior) Wrap(v float64) float64 {
	lo, hi := p.Bounds()
	return wrap(v, lo, hi)
}

func wrap(v, lo, hi float64) float64 {
	width := hi - lo
	if width <= 0 {
		return lo
	}
	r := math.Mod(v-lo, width)
	if r < 0 {
		r += width
	}
	out := lo + r
	if out > hi {
		out = hi
	}
	return out
}

// LogDensity returns log density(x) for a physical value, zero for the
// default uniform density and -Inf outside the range.
func (p Prior) LogDensity(x float64) float64 {
	if x < p.Range[0] || x > p.Range[1] {
		return math.Inf(-1)
	}
	if p.Density == nil {
		return 0
	}
	return math.Log(p.Density(x))
}

// ParamPriors holds one prior per entry of the Params tuple.
type ParamPriors [NumParams]Prior

func (pp ParamPriors) Validate() error {
	for i, p := range pp {
		if err := p.Validate(ParamNames[i]); err != nil {
			return err
		}
	}
	return nil
}

// ToParams converts a sampling-space tuple to physical params.
func (pp ParamPriors) ToParams(s []float64) Params {
	var t [NumParams]float64
	for i := range t {
		t[i] = pp[i].ToPhysical(s[i])
	}
	return ParamsFromTuple(t)
}

// FromParams converts physical params to a sampling-space tuple.
func (pp ParamPriors) FromParams(p Params, dst []float64) {
	t := p.Tuple()
	for i := range t {
		dst[i] = pp[i].FromPhysical(t[i])
	}
}

// LayerPriors is the calibration setup of one layer.
type LayerPriors struct {
	Name   string
	ZLow   float64
	Priors ParamPriors
}

// CheckPriorTiling validates the priors and that their layers tile [0, depth].
func CheckPriorTiling(lps []LayerPriors, depth float64) error {
	names := make([]string, len(lps))
	zLows := make([]float64, len(lps))
	for i, lp := range lps {
		if err := lp.Priors.Validate(); err != nil {
			return err
		}
		names[i], zLows[i] = lp.Name, lp.ZLow
	}
	return checkZLows(names, zLows, depth)
}
