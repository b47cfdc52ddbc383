package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/config"
	"github.com/san-kum/streamheat/internal/physics"
	"github.com/san-kum/streamheat/internal/storage"
	"github.com/spf13/cobra"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(outputDir())
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tTIME\tCELLS\tSTEPS\tLAYERS\tRMSE")

	for _, run := range runs {
		rmse := "-"
		if v, ok := run.Metrics["rmse"]; ok {
			rmse = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			run.ID[:8],
			run.Name,
			run.Kind,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Cells,
			run.Times,
			len(run.Layers),
			rmse,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(outputDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSensors(meta.ID)
	if err != nil {
		return err
	}
	if len(series.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s (%s)\n", meta.ID, meta.Kind)
	fmt.Printf("samples: %d\n\n", len(series.Times))

	ns := len(series.Simulated[0])
	for s := 0; s < ns; s++ {
		if sensor >= 0 && s != sensor {
			continue
		}
		simulated := celsius(sensorSeries(series.Simulated, s))
		measured := celsius(fillGaps(sensorSeries(series.Measured, s)))

		caption := fmt.Sprintf("sensor %d: simulated vs measured (°C)", s)
		if s < len(meta.SensorDepths) {
			caption = fmt.Sprintf("sensor at %.3f m: simulated vs measured (°C)", meta.SensorDepths[s])
		}
		fmt.Println(asciigraph.PlotMany([][]float64{simulated, measured},
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.SeriesColors(asciigraph.Red, asciigraph.Blue),
			asciigraph.Caption(caption),
		))
		fmt.Println()
	}

	if meta.Kind != storage.KindCalibration {
		return nil
	}
	q, err := st.LoadQuantiles(meta.ID)
	if err != nil {
		return nil
	}
	for s, z := range meta.SensorDepths {
		if sensor >= 0 && s != sensor {
			continue
		}
		bands := make([][]float64, len(q.Levels))
		labels := make([]string, len(q.Levels))
		for i, lv := range q.Levels {
			bands[i] = celsius(q.AtDepth(lv, z))
			labels[i] = fmt.Sprintf("q%g", lv)
		}
		fmt.Println(asciigraph.PlotMany(bands,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(fmt.Sprintf("posterior %s at %.3f m (°C)", strings.Join(labels, "/"), z)),
		))
		fmt.Println()
	}
	return nil
}

func sensorSeries(grid [][]float64, s int) []float64 {
	out := make([]float64, len(grid))
	for j := range grid {
		out[j] = grid[j][s]
	}
	return out
}

func celsius(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x - physics.ZeroCelsius
	}
	return out
}

// fillGaps carries the last reading over missing ones.
func fillGaps(v []float64) []float64 {
	last := math.NaN()
	for _, x := range v {
		if !math.IsNaN(x) {
			last = x
			break
		}
	}
	for i, x := range v {
		if math.IsNaN(x) {
			v[i] = last
		} else {
			last = x
		}
	}
	return v
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(outputDir())
	data, err := st.Export(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return storage.ExportJSONTo(os.Stdout, data)
	}
	if err := storage.ExportJSON(outFile, data); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", data.Metadata.ID, outFile)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("prior presets:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\t"+strings.ToUpper(strings.Join(column.ParamNames[:], "\t")))
	for _, name := range config.ListPriorPresets() {
		pp, _ := config.GetPriorPreset(name)
		fmt.Fprintf(w, "  %s", name)
		for _, p := range pp {
			if p.Fixed() {
				fmt.Fprintf(w, "\t%g", p.Range[0])
				continue
			}
			fmt.Fprintf(w, "\t[%g, %g]", p.Range[0], p.Range[1])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nmcmc presets:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tCHAINS\tBURN-IN\tITER\tSUBSAMPLE")
	for _, name := range config.ListMCMCPresets() {
		m := config.MCMCPresets[name]
		fmt.Fprintf(w, "  %s\t%d\t%d\t%d\t%d\n", name, m.Chains, m.BurnIn, m.Iterations, m.SubsampleIter)
	}
	return w.Flush()
}
