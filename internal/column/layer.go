package column

import (
	"math"
	"sort"
)

// NumParams is the length of the calibratable parameter tuple.
const NumParams = 5

// ParamNames lists the tuple order of Params.
var ParamNames = [NumParams]string{"logk", "porosity", "lambda_s", "rhocs", "source"}

// Params are the physical properties of one layer.
type Params struct {
	LogK     float64 `yaml:"logk" json:"logk"`         // -log10 of intrinsic permeability [m2]
	Porosity float64 `yaml:"porosity" json:"porosity"` // [-]
	LambdaS  float64 `yaml:"lambda_s" json:"lambda_s"` // solid thermal conductivity [W/m/K]
	RhoCS    float64 `yaml:"rhocs" json:"rhocs"`       // solid volumetric heat capacity [J/m3/K]
	Source   float64 `yaml:"source" json:"source"`     // internal source term [1/s]
}

// Tuple returns the params in ParamNames order.
func (p Params) Tuple() [NumParams]float64 {
	return [NumParams]float64{p.LogK, p.Porosity, p.LambdaS, p.RhoCS, p.Source}
}

func ParamsFromTuple(t [NumParams]float64) Params {
	return Params{LogK: t[0], Porosity: t[1], LambdaS: t[2], RhoCS: t[3], Source: t[4]}
}

// ParamsFromSlice is ParamsFromTuple for a slice of at least NumParams values.
func ParamsFromSlice(v []float64) Params {
	var t [NumParams]float64
	copy(t[:], v)
	return ParamsFromTuple(t)
}

// Permeability returns the intrinsic permeability k in m2.
func (p Params) Permeability() float64 {
	return math.Pow(10, -p.LogK)
}

func (p Params) Validate() error {
	for i, v := range p.Tuple() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return configErr(ParamNames[i], "not finite")
		}
	}
	if p.Porosity <= 0 || p.Porosity >= 1 {
		return configErr("porosity", "%g outside (0, 1)", p.Porosity)
	}
	if p.LambdaS <= 0 {
		return configErr("lambda_s", "must be positive, got %g", p.LambdaS)
	}
	if p.RhoCS <= 0 {
		return configErr("rhocs", "must be positive, got %g", p.RhoCS)
	}
	return nil
}

// Layer is a stratum from the previous layer's ZLow down to its own ZLow.
type Layer struct {
	Name   string  `yaml:"name" json:"name"`
	ZLow   float64 `yaml:"zlow" json:"zlow"`
	Params Params  `yaml:"params" json:"params"`
}

// SortLayers orders layers by increasing ZLow in place.
func SortLayers(layers []Layer) {
	sort.SliceStable(layers, func(i, j int) bool { return layers[i].ZLow < layers[j].ZLow })
}

// CheckTiling verifies that layers, sorted by depth, cover [0, depth]
// without gap or overlap.
func CheckTiling(layers []Layer, depth float64) error {
	names := make([]string, len(layers))
	zLows := make([]float64, len(layers))
	for i, l := range layers {
		if err := l.Params.Validate(); err != nil {
			return err
		}
		names[i], zLows[i] = l.Name, l.ZLow
	}
	return checkZLows(names, zLows, depth)
}

func checkZLows(names []string, zLows []float64, depth float64) error {
	if len(zLows) == 0 {
		return configErr("layers", "at least one layer is required")
	}
	prev := 0.0
	for i, z := range zLows {
		if z <= prev {
			return configErr("layers", "layer %d (%s) ends at %g, not below %g", i, names[i], z, prev)
		}
		prev = z
	}
	if math.Abs(prev-depth) > Epsilon*math.Max(1, depth) {
		return configErr("layers", "last layer ends at %g but the column is %g deep", prev, depth)
	}
	return nil
}

// CellLayers maps every cell centre to the index of the layer holding it.
// A centre exactly on an interface belongs to the upper layer.
func CellLayers(layers []Layer, z []float64) []int {
	idx := make([]int, len(z))
	l := 0
	for k, zk := range z {
		for l < len(layers)-1 && zk > layers[l].ZLow {
			l++
		}
		idx[k] = l
	}
	return idx
}

// CloneLayers deep-copies a layer list.
func CloneLayers(layers []Layer) []Layer {
	return append([]Layer(nil), layers...)
}
