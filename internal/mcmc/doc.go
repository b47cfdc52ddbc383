// Package mcmc calibrates layer parameters with a multi-chain DREAM
// sampler (DiffeRential Evolution Adaptive Metropolis).
//
// Every iteration proposes, for each chain and layer, a jump built from
// the differences of other chains' current positions, restricted to a
// random subset of dimensions chosen by crossover:
//
//	dX = (1 + e)·γ·Σ(X_a - X_b) + ε
//
// Proposals are wrapped back into the prior ranges and accepted with the
// Metropolis rule on the energy of the forward solve. During burn-in the
// crossover probabilities adapt towards bins that produce large
// normalised jumps, and burn-in stops once the Gelman-Rubin R̂ of every
// free parameter drops below the threshold.
//
//   - [Engine]: runs burn-in and sampling and returns a [Run]
//   - [Target]: what the sampler explores; [ColumnTarget] wraps a forward solver
//   - [ChainEnsemble]: current positions, energies and noise variances
//   - [EstimateMemory]: up-front trajectory storage estimate
//   - [Sink]: progress and non-convergence reporting
//
// With fewer than three chains no difference pair can be drawn and the
// proposal falls back to a Gaussian random walk with the prior steps.
// A single chain replaces burn-in by keeping the best of BurnIn prior
// draws.
package mcmc
