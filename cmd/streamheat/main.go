package main

import (
	"fmt"
	"os"

	"github.com/san-kum/streamheat/internal/config"
	"github.com/san-kum/streamheat/internal/metrics"
	"github.com/san-kum/streamheat/internal/monitoring"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool

	// column and solver overrides
	cells     int
	viscosity string

	// calibration overrides
	mcmcPreset string
	chains     int
	iterations int
	burnIn     int
	seed       uint64
	workers    int
	noiseMode  string
	budgetMiB  int64
	logEvery   int

	// scan
	scanPoints int
	scanTop    int

	// plot
	sensor int
	width  int
	height int

	// export
	outFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "streamheat",
		Short: "streambed heat transport simulation and calibration",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run directory (defaults to the config output)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [config]",
		Short: "run the forward model with the configured layers",
		Args:  cobra.ExactArgs(1),
		RunE:  runForward,
	}
	addColumnFlags(runCmd)

	calibrateCmd := &cobra.Command{
		Use:   "calibrate [config]",
		Short: "calibrate layer parameters with DREAM",
		Args:  cobra.ExactArgs(1),
		RunE:  runCalibration,
	}
	addColumnFlags(calibrateCmd)
	addMCMCFlags(calibrateCmd)
	calibrateCmd.Flags().IntVar(&logEvery, "log-every", 50, "progress line every n iterations")

	estimateCmd := &cobra.Command{
		Use:   "estimate [config]",
		Short: "estimate calibration memory and propose a subsampling cadence",
		Args:  cobra.ExactArgs(1),
		RunE:  runEstimate,
	}
	addColumnFlags(estimateCmd)
	addMCMCFlags(estimateCmd)

	scanCmd := &cobra.Command{
		Use:   "scan [config]",
		Short: "scan the energy on a grid over the prior ranges",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}
	addColumnFlags(scanCmd)
	scanCmd.Flags().IntVar(&scanPoints, "points", 10, "grid points per free parameter")
	scanCmd.Flags().IntVar(&scanTop, "top", 5, "number of best points to print")
	scanCmd.Flags().IntVar(&workers, "workers", 0, "parallel forward solves (0: GOMAXPROCS)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot simulated and measured sensor temperatures",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&sensor, "sensor", -1, "sensor index (all when negative)")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 12, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (stdout when empty)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list prior and mcmc presets",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, calibrateCmd, estimateCmd, scanCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func addColumnFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&cells, "cells", 0, "number of cells (overrides config)")
	cmd.Flags().StringVar(&viscosity, "viscosity", "", "viscosity model: constant or arrhenius")
}

func addMCMCFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&mcmcPreset, "preset", "", "mcmc preset")
	cmd.Flags().IntVar(&chains, "chains", 0, "number of chains")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "sampling iterations")
	cmd.Flags().IntVar(&burnIn, "burn-in", 0, "maximum burn-in iterations")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel chain updates (0: GOMAXPROCS)")
	cmd.Flags().StringVar(&noiseMode, "noise", "", "noise mode: known or unknown")
	cmd.Flags().Int64Var(&budgetMiB, "budget", 0, "memory budget in MiB")
}

func setupLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	monitoring.SetLogger(logrus.StandardLogger().Infof)
}

// loadConfig reads the configuration and applies the command line
// overrides. Flags win over the file.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("cells") {
		cfg.Column.Cells = cells
	}
	if flags.Changed("viscosity") {
		cfg.Solver.Viscosity = viscosity
	}
	if mcmcPreset != "" && flags.Lookup("preset") != nil {
		if !config.ApplyMCMCPreset(&cfg.MCMC, mcmcPreset) {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", mcmcPreset, config.ListMCMCPresets())
		}
	}
	if flags.Changed("chains") {
		cfg.MCMC.Chains = chains
	}
	if flags.Changed("iterations") {
		cfg.MCMC.Iterations = iterations
	}
	if flags.Changed("burn-in") {
		cfg.MCMC.BurnIn = burnIn
	}
	if flags.Changed("seed") {
		cfg.MCMC.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.MCMC.Workers = workers
	}
	if flags.Changed("noise") {
		cfg.MCMC.NoiseMode = metrics.NoiseMode(noiseMode)
	}
	if flags.Changed("budget") {
		cfg.MCMC.MemoryBudget = budgetMiB << 20
	}
	if dataDir != "" {
		cfg.Output = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logrus.WithField("config", path).Debugf("loaded %q", cfg.Name)
	return cfg, nil
}

// outputDir is the run directory of commands that take no config.
func outputDir() string {
	if dataDir != "" {
		return dataDir
	}
	return config.DefaultOutput
}
