package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/config"
	"github.com/san-kum/streamheat/internal/mcmc"
	"github.com/san-kum/streamheat/internal/metrics"
	"github.com/san-kum/streamheat/internal/optim"
	"github.com/san-kum/streamheat/internal/sim"
	"github.com/san-kum/streamheat/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newSimulator builds the column and the forward solver. A positive
// cellsOverride regrids the column.
func newSimulator(cfg *config.Config, cellsOverride int) (*sim.Simulator, error) {
	col, err := cfg.BuildColumn()
	if err != nil {
		return nil, err
	}
	if cellsOverride > 0 && cellsOverride != col.Cells {
		if col, err = col.WithCells(cellsOverride); err != nil {
			return nil, err
		}
	}
	simCfg, err := cfg.SimConfig()
	if err != nil {
		return nil, err
	}
	logrus.Debugf("column: %d cells, dz=%.4g m, %d times, %d sensors", col.Cells, col.Dz, col.NumTimes(), len(col.SensorDepths))
	return sim.New(col, simCfg)
}

func newTarget(cfg *config.Config, s *sim.Simulator) (*mcmc.ColumnTarget, error) {
	energy, err := metrics.New(cfg.MCMC.NoiseMode, cfg.MCMC.Remanence, cfg.MCMC.Sigma2Prior())
	if err != nil {
		return nil, err
	}
	return mcmc.NewColumnTarget(s, energy), nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	st := storage.New(cfg.Path(cfg.Output))
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func runForward(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if len(cfg.Layers) == 0 {
		return &column.ConfigurationError{Field: "layers", Reason: "forward runs need at least one layer"}
	}
	s, err := newSimulator(cfg, cfg.Column.Cells)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running forward model %s...\n", cfg.Name)
	start := time.Now()
	res, err := s.Run(ctx, cfg.Layers)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.SaveForward(cfg.Name, s.Column(), cfg.Layers, res)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	printFit(res.Sensors(), s.Column())
	return nil
}

func printFit(simulated [][]float64, col *column.Column) {
	per, total := metrics.RMSE(simulated, col.Measured)
	fmt.Println("\nrmse:")
	for i, v := range per {
		fmt.Printf("  sensor %d (%.3f m): %.4f K\n", i, col.SensorDepths[i], v)
	}
	fmt.Printf("  total: %.4f K\n", total)
}

func runCalibration(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	priors, err := cfg.LayerPriors()
	if err != nil {
		return err
	}
	s, err := newSimulator(cfg, cfg.MCMC.Cells)
	if err != nil {
		return err
	}
	target, err := newTarget(cfg, s)
	if err != nil {
		return err
	}
	engine, err := mcmc.New(cfg.MCMC, target, mcmc.LogSink{Every: logEvery})
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	run, runErr := engine.Run(ctx, priors)
	var resErr *mcmc.ResourceError
	if errors.As(runErr, &resErr) {
		return fmt.Errorf("%w; raise --budget or set subsample_iter in the config", runErr)
	}
	if run == nil {
		return runErr
	}
	if runErr != nil {
		logrus.Warnf("calibration stopped early: %v; saving partial run", runErr)
	}
	elapsed := time.Since(start)

	// the best sample's forward run, outside the cancelled context
	var bestRes *sim.Result
	if best, ok := run.Best(); ok {
		if bestRes, err = s.Run(context.Background(), best.Layers); err != nil {
			logrus.Warnf("best sample forward run failed: %v", err)
			bestRes = nil
		}
	}

	runID, err := st.SaveCalibration(cfg.Name, s.Column(), cfg.MCMC, run, bestRes)
	if err != nil {
		return err
	}

	printSummary(runID, elapsed, cfg.MCMC, run)
	if bestRes != nil {
		printFit(bestRes.Sensors(), s.Column())
	}
	return runErr
}

func runEstimate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	priors, err := cfg.LayerPriors()
	if err != nil {
		return err
	}
	s, err := newSimulator(cfg, cfg.MCMC.Cells)
	if err != nil {
		return err
	}
	target, err := newTarget(cfg, s)
	if err != nil {
		return err
	}
	engine, err := mcmc.New(cfg.MCMC, target, nil)
	if err != nil {
		return err
	}

	shape := engine.Shape(priors)
	estimate := mcmc.EstimateMemory(shape)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHAINS\tITER\tCELLS\tTIMES\tLAYERS\tSUBSAMPLE\tESTIMATE")
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d/%d/%d\t%d MiB\n",
		shape.Chains, shape.Iterations, shape.Cells, shape.Times, shape.Layers,
		shape.SubsampleIter, shape.SubsampleSpace, shape.SubsampleTime, estimate>>20)
	if err := w.Flush(); err != nil {
		return err
	}

	budget := cfg.MCMC.MemoryBudget
	if budget <= 0 {
		fmt.Println("\nno memory budget set")
		return nil
	}
	if estimate <= budget {
		fmt.Printf("\nfits the budget of %d MiB\n", budget>>20)
		return nil
	}
	if n, ok := mcmc.ProposeCadence(shape, budget); ok {
		fmt.Printf("\nexceeds the budget of %d MiB; subsample_iter=%d fits\n", budget>>20, n)
		return nil
	}
	fmt.Printf("\nexceeds the budget of %d MiB at any iteration cadence\n", budget>>20)
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	priors, err := cfg.LayerPriors()
	if err != nil {
		return err
	}
	s, err := newSimulator(cfg, cfg.MCMC.Cells)
	if err != nil {
		return err
	}
	target, err := newTarget(cfg, s)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gs := optim.NewGridSearch(scanPoints, cfg.MCMC.Workers)
	axes := gs.Axes(priors)
	fmt.Printf("scanning %d parameters, %d points each...\n", len(axes), scanPoints)
	start := time.Now()
	_, points, err := gs.Search(ctx, target, priors, cfg.MCMC.Sigma2)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v, %d points solved\n\n", time.Since(start), len(points))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "RANK\tENERGY"
	for _, a := range axes {
		header += "\t" + a.Name
	}
	fmt.Fprintln(w, header)
	for i, p := range points {
		if i >= scanTop {
			break
		}
		fmt.Fprintf(w, "%d\t%.6g", i+1, p.Energy)
		for _, a := range axes {
			fmt.Fprintf(w, "\t%.4g", p.Layers[a.Layer].Params.Tuple()[a.Param])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
