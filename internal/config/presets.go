package config

import (
	"sort"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/mcmc"
)

// PriorPresets are typical parameter ranges of streambed sediments.
// LogK is -log10 of the intrinsic permeability in m².
var PriorPresets = map[string]column.ParamPriors{
	"gravel": {
		{Range: [2]float64{8, 11}, Sigma: 0.1},
		{Range: [2]float64{0.2, 0.35}, Sigma: 0.01},
		{Range: [2]float64{2, 5}, Sigma: 0.1},
		{Range: [2]float64{2e6, 4e6}, Sigma: 1e5},
		column.FixedPrior(0),
	},
	"sand": {
		{Range: [2]float64{10, 13}, Sigma: 0.1},
		{Range: [2]float64{0.25, 0.45}, Sigma: 0.01},
		{Range: [2]float64{1.5, 4}, Sigma: 0.1},
		{Range: [2]float64{2e6, 4e6}, Sigma: 1e5},
		column.FixedPrior(0),
	},
	"silt": {
		{Range: [2]float64{12, 15}, Sigma: 0.1},
		{Range: [2]float64{0.35, 0.5}, Sigma: 0.01},
		{Range: [2]float64{1, 3}, Sigma: 0.1},
		{Range: [2]float64{2e6, 4e6}, Sigma: 1e5},
		column.FixedPrior(0),
	},
	"clay": {
		{Range: [2]float64{14, 18}, Sigma: 0.1},
		{Range: [2]float64{0.4, 0.6}, Sigma: 0.01},
		{Range: [2]float64{0.8, 2.5}, Sigma: 0.1},
		{Range: [2]float64{2e6, 4e6}, Sigma: 1e5},
		column.FixedPrior(0),
	},
}

// MCMCPresets trade run time for posterior quality. Only the listed
// fields are applied.
var MCMCPresets = map[string]mcmc.Config{
	"quick":    {Chains: 4, BurnIn: 100, Iterations: 100, SubsampleIter: 5},
	"standard": {Chains: 10, BurnIn: 1000, Iterations: 1000, SubsampleIter: 10},
	"thorough": {Chains: 20, BurnIn: 3000, Iterations: 5000, SubsampleIter: 20},
}

func GetPriorPreset(name string) (column.ParamPriors, bool) {
	pp, ok := PriorPresets[name]
	return pp, ok
}

// ApplyMCMCPreset overwrites the run size of cfg with the named preset.
func ApplyMCMCPreset(cfg *mcmc.Config, name string) bool {
	p, ok := MCMCPresets[name]
	if !ok {
		return false
	}
	cfg.Chains = p.Chains
	cfg.BurnIn = p.BurnIn
	cfg.Iterations = p.Iterations
	cfg.SubsampleIter = p.SubsampleIter
	return true
}

func ListPriorPresets() []string {
	return sortedKeys(PriorPresets)
}

func ListMCMCPresets() []string {
	return sortedKeys(MCMCPresets)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
