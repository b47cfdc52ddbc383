package mcmc

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/metrics"
	"github.com/san-kum/streamheat/internal/sim"
)

var _ = Describe("Engine", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("on a steep one-parameter energy", func() {
		It("never ends a chain above its initial energy", func() {
			engine, err := New(testConfig(2, 0, 50), slope(1e9), nil)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, unitPriors(0.05))
			Expect(err).NotTo(HaveOccurred())
			Expect(run.States).To(HaveLen(51))
			Expect(run.Energies).To(HaveLen(51))

			first, last := run.Energies[0], run.Energies[len(run.Energies)-1]
			for c := range first {
				Expect(last[c]).To(BeNumerically("<=", first[c]), "chain %d", c)
			}
		})

		It("keeps fixed parameters and stays within the prior range", func() {
			engine, err := New(testConfig(5, 20, 30), slope(1), nil)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, unitPriors(0.1))
			Expect(err).NotTo(HaveOccurred())
			for _, row := range run.States {
				for _, st := range row {
					p := st.Layers[0].Params
					Expect(p.LogK).To(BeNumerically(">=", 0))
					Expect(p.LogK).To(BeNumerically("<=", 1))
					Expect(p.Porosity).To(Equal(0.2))
					Expect(p.RhoCS).To(Equal(4e6))
				}
			}
		})
	})

	Describe("burn-in", func() {
		It("converges on a Gaussian energy and recovers its mean", func() {
			var pp column.ParamPriors
			pp[0] = column.NewPrior(0, 1, 0.05)
			pp[1] = column.NewPrior(0.1, 0.5, 0.02)
			pp[2] = column.FixedPrior(2)
			pp[3] = column.FixedPrior(4e6)
			pp[4] = column.FixedPrior(0)
			priors := []column.LayerPriors{{Name: "bed", ZLow: 0.4, Priors: pp}}

			cfg := testConfig(8, 1000, 400)
			sink := &recordingSink{}
			engine, err := New(cfg, gaussian(0.5, 0.1), sink)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, priors)
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Converged).To(BeTrue())
			Expect(run.BurnInIterations).To(BeNumerically("<", cfg.BurnIn))
			Expect(sink.nonConvergence).To(BeEmpty())
			Expect(sink.opened).To(Equal(1))
			Expect(sink.flushed).To(Equal(1))

			q := run.ParamQuantiles()
			Expect(q[0][0][1]).To(BeNumerically("~", 0.5, 0.05))
			Expect(q[0][1][1]).To(BeNumerically("~", 0.3, 0.03))

			for _, p := range run.Crossover[0] {
				Expect(p).To(BeNumerically(">=", 0))
			}
			Expect(run.Crossover[0][0] + run.Crossover[0][1] + run.Crossover[0][2]).To(BeNumerically("~", 1, 1e-9))
		})

		It("starts the Gelman-Rubin history from the initial ensemble", func() {
			sink := &recordingSink{}
			engine, err := New(testConfig(4, 1, 2), slope(1), sink)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, unitPriors(0.1))
			Expect(err).NotTo(HaveOccurred())
			Expect(run.BurnInIterations).To(Equal(1))
			Expect(run.RHat).To(HaveLen(1))
			Expect(run.RHat[0][0]).To(BeNumerically(">=", 1))

			var burnIn []Progress
			for _, p := range sink.iterations {
				if p.Phase == PhaseBurnIn {
					burnIn = append(burnIn, p)
				}
			}
			Expect(burnIn).To(HaveLen(1))
			Expect(burnIn[0].MaxRHat).To(BeNumerically(">=", 1))
		})

		It("reports frozen chains as not converged", func() {
			sink := &recordingSink{}
			engine, err := New(testConfig(2, 5, 3), slope(0), sink)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, unitPriors(1e-9))
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Converged).To(BeFalse())
			Expect(run.BurnInIterations).To(Equal(5))
			Expect(sink.nonConvergence).To(HaveLen(1))
			Expect(sink.nonConvergence[0].RHat[0][0]).To(BeNumerically(">", 1.2))
			Expect(run.States).To(HaveLen(4))
		})
	})

	Describe("crossover", func() {
		var priors []column.LayerPriors

		BeforeEach(func() {
			var pp column.ParamPriors
			pp[0] = column.NewPrior(0, 1, 0.05)
			pp[1] = column.NewPrior(0.1, 0.5, 0.02)
			pp[2] = column.FixedPrior(2)
			pp[3] = column.FixedPrior(4e6)
			pp[4] = column.FixedPrior(0)
			priors = []column.LayerPriors{{Name: "bed", ZLow: 0.4, Priors: pp}}
		})

		It("keeps adapting the crossover probabilities while sampling", func() {
			engine, err := New(testConfig(5, 10, 50), gaussian(0.5, 0.1), nil)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, priors)
			Expect(err).NotTo(HaveOccurred())
			Expect(run.BurnInCrossover).To(HaveLen(1))
			Expect(run.Crossover).NotTo(Equal(run.BurnInCrossover))
		})

		It("holds them fixed after burn-in when frozen", func() {
			cfg := testConfig(5, 10, 50)
			cfg.FreezeCrossover = true
			engine, err := New(cfg, gaussian(0.5, 0.1), nil)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, priors)
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Crossover).To(Equal(run.BurnInCrossover))
		})
	})

	Describe("single chain", func() {
		It("keeps the best prior draw and then random-walks", func() {
			engine, err := New(testConfig(1, 40, 20), slope(1e9), nil)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, unitPriors(0.05))
			Expect(err).NotTo(HaveOccurred())
			Expect(run.BurnInIterations).To(Equal(39))
			Expect(run.Converged).To(BeFalse())
			Expect(run.RHat).To(BeNil())
			Expect(run.States).To(HaveLen(21))

			// the best of 40 uniform draws is well inside the lower tail
			Expect(run.States[0][0].Layers[0].Params.LogK).To(BeNumerically("<", 0.2))
			best, ok := run.Best()
			Expect(ok).To(BeTrue())
			Expect(best.Energy).To(BeNumerically("<=", run.Energies[0][0]))
		})
	})

	Describe("noise variance", func() {
		It("samples σ² within its prior in unknown-noise mode", func() {
			cfg := testConfig(4, 10, 20)
			cfg.NoiseMode = metrics.NoiseUnknown
			cfg.Sigma2Range = [2]float64{0.05, 0.5}
			engine, err := New(cfg, slope(1), nil)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, unitPriors(0.1))
			Expect(err).NotTo(HaveOccurred())
			for _, row := range run.Sigma2() {
				for _, s2 := range row {
					Expect(s2).To(BeNumerically(">=", 0.05))
					Expect(s2).To(BeNumerically("<=", 0.5))
				}
			}
		})

		It("uses the fixed σ² in known-noise mode", func() {
			cfg := testConfig(3, 2, 2)
			cfg.Sigma2 = 0.25
			engine, err := New(cfg, slope(1), nil)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, unitPriors(0.1))
			Expect(err).NotTo(HaveOccurred())
			for _, row := range run.Sigma2() {
				for _, s2 := range row {
					Expect(s2).To(Equal(0.25))
				}
			}
		})
	})

	Describe("failed solves", func() {
		It("rejects proposals whose solve fails", func() {
			target := &funcTarget{energy: func(p column.Params) (float64, error) {
				if p.LogK > 0.5 {
					return 0, errUnsolvable
				}
				return 0, nil
			}}
			engine, err := New(testConfig(4, 10, 40), target, nil)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, unitPriors(0.2))
			Expect(err).NotTo(HaveOccurred())
			for _, row := range run.States {
				for _, st := range row {
					Expect(st.Layers[0].Params.LogK).To(BeNumerically("<=", 0.5))
				}
			}
		})

		It("gives up when no initial sample solves", func() {
			target := &funcTarget{energy: func(column.Params) (float64, error) {
				return 0, errUnsolvable
			}}
			engine, err := New(testConfig(2, 1, 1), target, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Run(ctx, unitPriors(0.1))
			Expect(errors.Is(err, ErrNoValidStart)).To(BeTrue())
			Expect(target.calls.Load()).To(BeNumerically(">=", maxInitTries))
		})
	})

	Describe("cancellation", func() {
		It("returns the completed iterations with the context error", func() {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			sink := &recordingSink{onIteration: func(p Progress) {
				if p.Phase == PhaseSampling && p.Iteration == 10 {
					cancel()
				}
			}}
			engine, err := New(testConfig(3, 2, 100), slope(1), sink)
			Expect(err).NotTo(HaveOccurred())

			run, err := engine.Run(ctx, unitPriors(0.1))
			Expect(err).To(MatchError(context.Canceled))
			Expect(run).NotTo(BeNil())
			Expect(run.States).To(HaveLen(11))
			Expect(run.Acceptance).To(HaveLen(3))
			Expect(sink.flushed).To(Equal(1))
		})
	})

	Describe("reproducibility", func() {
		It("gives identical chains for the same seed whatever the worker count", func() {
			cfg := testConfig(5, 10, 20)
			cfg.Workers = 1
			a, err := New(cfg, slope(3), nil)
			Expect(err).NotTo(HaveOccurred())
			cfg.Workers = 4
			b, err := New(cfg, slope(3), nil)
			Expect(err).NotTo(HaveOccurred())

			runA, err := a.Run(ctx, unitPriors(0.1))
			Expect(err).NotTo(HaveOccurred())
			runB, err := b.Run(ctx, unitPriors(0.1))
			Expect(err).NotTo(HaveOccurred())
			Expect(runB.Energies).To(Equal(runA.Energies))
		})
	})

	Describe("memory budget", func() {
		It("refuses runs that would not fit and suggests a cadence", func() {
			cfg := testConfig(10, 10, 2000)
			cfg.MemoryBudget = 1 << 30
			target := slope(1)
			target.cells, target.times = 100, 5000

			engine, err := New(cfg, target, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Run(ctx, unitPriors(0.1))
			Expect(errors.Is(err, ErrResourceExceeded)).To(BeTrue())
			var re *ResourceError
			Expect(errors.As(err, &re)).To(BeTrue())
			Expect(re.Estimate).To(BeNumerically(">", re.Budget))
			Expect(re.Suggested).To(BeNumerically(">=", 10))
			Expect(target.calls.Load()).To(BeZero())
		})
	})

	Describe("configuration", func() {
		It("rejects invalid settings", func() {
			bad := []func(*Config){
				func(c *Config) { c.Chains = 0 },
				func(c *Config) { c.NCR = 0 },
				func(c *Config) { c.Threshold = 1 },
				func(c *Config) { c.SubsampleIter = 0 },
				func(c *Config) { c.Quantiles = []float64{1.5} },
				func(c *Config) { c.NoiseMode = "loud" },
				func(c *Config) { c.NoiseMode = metrics.NoiseUnknown; c.Sigma2Range = [2]float64{0, 1} },
			}
			for i, mutate := range bad {
				cfg := DefaultConfig()
				mutate(&cfg)
				_, err := New(cfg, slope(1), nil)
				Expect(errors.Is(err, column.ErrConfiguration)).To(BeTrue(), "case %d: %v", i, err)
			}
		})

		It("limits the number of difference pairs by the chain count", func() {
			for chains, expected := range map[int]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 2, 10: 2} {
				cfg := DefaultConfig()
				cfg.Chains = chains
				Expect(cfg.pairs()).To(Equal(expected), "chains=%d", chains)
			}
		})
	})
})

var _ = Describe("ColumnTarget", func() {
	It("has zero energy at the parameters that generated the measurements", func() {
		t0 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
		nt := 48
		times := make([]time.Time, nt)
		dH := make([]float64, nt)
		tRiv := make([]float64, nt)
		sensors := make([][]float64, nt)
		for j := range times {
			times[j] = t0.Add(time.Duration(j) * 15 * time.Minute)
			dH[j] = 0.03
			tRiv[j] = 290 + 2*math.Sin(float64(j)/6)
			sensors[j] = []float64{289, 288, 287, 286}
		}
		setup := column.Setup{SensorDepths: []float64{0.1, 0.2, 0.3, 0.4}, Cells: 20}
		col, err := column.FromSeries(times, dH, tRiv, sensors, setup)
		Expect(err).NotTo(HaveOccurred())

		s, err := sim.New(col, sim.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		truth := []column.Layer{{Name: "bed", ZLow: 0.4, Params: column.Params{LogK: 12, Porosity: 0.2, LambdaS: 2, RhoCS: 4e6}}}
		res, err := s.Run(context.Background(), truth)
		Expect(err).NotTo(HaveOccurred())

		col.Measured = res.Sensors()

		target := NewColumnTarget(s, &metrics.KnownVariance{})
		cells, steps := target.Grid()
		Expect(cells).To(Equal(20))
		Expect(steps).To(Equal(nt))

		buf := target.NewBuffer()
		e, err := target.Evaluate(context.Background(), truth, 1, buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeNumerically("~", 0, 1e-12))

		off := []column.Layer{{Name: "bed", ZLow: 0.4, Params: column.Params{LogK: 10, Porosity: 0.2, LambdaS: 2, RhoCS: 4e6}}}
		e, err = target.Evaluate(context.Background(), off, 1, buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeNumerically(">", 0))
	})
})
