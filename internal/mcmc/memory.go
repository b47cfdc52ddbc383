package mcmc

import "math"

const (
	bytesPerValue  = 8
	memoryOverhead = 1.3
	// first cadence tried by ProposeCadence
	minCadence = 10
)

// Shape is the size of a calibration run as seen by the memory estimate.
type Shape struct {
	Chains     int
	Iterations int
	Cells      int
	Times      int
	Layers     int
	Params     int

	SubsampleIter  int
	SubsampleSpace int
	SubsampleTime  int
}

// EstimateMemory returns the expected peak size of a run in bytes: the
// per-chain forward fields, the parameter and energy history, the
// subsampled temperature and flux trajectories and the quantile grids,
// with a fixed overhead factor.
func EstimateMemory(s Shape) int64 {
	ni := max(s.SubsampleIter, 1)
	ns := max(s.SubsampleSpace, 1)
	nt := max(s.SubsampleTime, 1)

	chains := float64(s.Chains)
	iters := float64(s.Iterations)
	field := float64(s.Cells) * float64(s.Times)
	params := float64(s.Layers) * float64(s.Params)
	cellsSub := ceilDiv(s.Cells, ns)
	timesSub := ceilDiv(s.Times, nt)
	stored := ceilDiv(s.Iterations+1, ni)

	values := (4*chains+1)*field +
		2*chains +
		field +
		iters*chains +
		(iters+1)*chains*params +
		(chains+2)*params +
		2*stored*chains*cellsSub*timesSub +
		6*cellsSub*timesSub

	return int64(math.Ceil(values * memoryOverhead * bytesPerValue))
}

// ProposeCadence returns the smallest iteration subsampling cadence, from
// 10 upwards, whose estimate fits budget. It reports false when even
// keeping only the initial and last iteration does not fit.
func ProposeCadence(s Shape, budget int64) (int, bool) {
	limit := max(minCadence, s.Iterations+1)
	for n := minCadence; n <= limit; n++ {
		s.SubsampleIter = n
		if EstimateMemory(s) <= budget {
			return n, true
		}
	}
	return 0, false
}

func ceilDiv(a, b int) float64 {
	return math.Ceil(float64(a) / float64(b))
}
