package mcmc

import (
	"github.com/san-kum/streamheat/internal/analysis"
	"github.com/san-kum/streamheat/internal/metrics"
	"github.com/san-kum/streamheat/internal/monitoring"
)

// Phase names the stage of a run.
type Phase string

const (
	PhaseInit     Phase = "init"
	PhaseBurnIn   Phase = "burn-in"
	PhaseSampling Phase = "sampling"
)

// RunInfo describes a run when it starts.
type RunInfo struct {
	Chains     int
	Layers     int
	Iterations int
	BurnIn     int
	Pairs      int
	NoiseMode  metrics.NoiseMode
	Seed       uint64
	Estimate   int64
}

// Progress is reported after every iteration.
type Progress struct {
	Phase      Phase
	Iteration  int
	Total      int
	Acceptance float64
	BestEnergy float64
	// MaxRHat is zero outside burn-in.
	MaxRHat float64
}

// RHatSummary is reported when burn-in ends without convergence.
type RHatSummary struct {
	RHat       [][]float64
	Mask       [][]bool
	Threshold  float64
	Iterations int
}

// Sink receives run events. Open is called before initialisation and
// Flush once the run ends, also on error.
type Sink interface {
	Open(info RunInfo) error
	Iteration(p Progress)
	NonConvergence(s RHatSummary)
	Flush() error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Open(RunInfo) error         { return nil }
func (NopSink) Iteration(Progress)         {}
func (NopSink) NonConvergence(RHatSummary) {}
func (NopSink) Flush() error               { return nil }

// LogSink writes events to monitoring.Logf, one progress line every
// Every iterations (every iteration when zero).
type LogSink struct {
	Every int
}

func (s LogSink) Open(info RunInfo) error {
	monitoring.Logf("[mcmc] start: %d chains, %d layers, burn-in %d, sampling %d, δ'=%d, noise=%s, seed=%d, ~%d MiB",
		info.Chains, info.Layers, info.BurnIn, info.Iterations, info.Pairs, info.NoiseMode, info.Seed, info.Estimate>>20)
	return nil
}

func (s LogSink) Iteration(p Progress) {
	if s.Every > 1 && p.Iteration%s.Every != 0 && p.Iteration != p.Total {
		return
	}
	if p.Phase == PhaseBurnIn {
		monitoring.Logf("[mcmc] %s %d/%d: acceptance=%.3f best=%.4g max R̂=%.3f",
			p.Phase, p.Iteration, p.Total, p.Acceptance, p.BestEnergy, p.MaxRHat)
		return
	}
	monitoring.Logf("[mcmc] %s %d/%d: acceptance=%.3f best=%.4g",
		p.Phase, p.Iteration, p.Total, p.Acceptance, p.BestEnergy)
}

func (s LogSink) NonConvergence(r RHatSummary) {
	monitoring.Logf("[mcmc] burn-in did not converge after %d iterations: max R̂=%.3f (threshold %.2f)",
		r.Iterations, analysis.MaxRHat(r.RHat, r.Mask), r.Threshold)
}

func (s LogSink) Flush() error { return nil }
