// Package analysis turns MCMC output into convergence diagnostics and
// posterior summaries.
//
//   - [GelmanRubin]: potential scale reduction R̂ per layer parameter
//   - [Converged]: threshold test over the free parameters
//   - [Quantiles]: pointwise posterior quantiles of a sampled field
//   - [ParamQuantiles]: posterior quantiles of every layer parameter
//   - [BestIndex]: sample of minimum energy
//   - [EffectiveSampleSize]: autocorrelation-corrected sample count
//
// # Convergence
//
// Samples are indexed [chain][iter][layer][param]. For m chains of n
// iterations, with W the mean within-chain variance and B the variance
// of the chain means:
//
//	R̂ = sqrt(((n-1)/n·W + B) / W)
//
// Chains exploring the same distribution give R̂ close to 1:
//
//	r := analysis.GelmanRubin(history)
//	if analysis.Converged(r, 1.2, analysis.FreeMask(priors)) {
//	    // stop burn-in
//	}
package analysis
