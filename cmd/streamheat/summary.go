package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/streamheat/internal/analysis"
	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/mcmc"
)

var (
	cyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	warn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	box   = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")).
		Padding(0, 1)
)

func row(label, value string) string {
	return dim.Render(fmt.Sprintf("%-12s", label)) + white.Render(value)
}

// printSummary renders the outcome of a calibration.
func printSummary(runID string, elapsed time.Duration, cfg mcmc.Config, run *mcmc.Run) {
	var b strings.Builder
	b.WriteString(title.Render("calibration") + "\n")
	b.WriteString(row("run id", runID) + "\n")
	b.WriteString(row("elapsed", elapsed.Round(time.Millisecond).String()) + "\n")
	b.WriteString(row("chains", fmt.Sprintf("%d", cfg.Chains)) + "\n")
	b.WriteString(row("burn-in", fmt.Sprintf("%d iterations", run.BurnInIterations)) + "\n")
	b.WriteString(row("samples", fmt.Sprintf("%d", len(run.States))) + "\n")

	switch {
	case run.RHat == nil:
		b.WriteString(row("converged", dim.Render("n/a")) + "\n")
	case run.Converged:
		b.WriteString(row("converged", cyan.Render("yes")) + "\n")
	default:
		worst := analysis.MaxRHat(run.RHat, analysis.FreeMask(run.Priors))
		b.WriteString(row("converged", warn.Render(fmt.Sprintf("no (max R̂ %.3f)", worst))) + "\n")
	}

	acc := 0.0
	for _, a := range run.Acceptance {
		acc += a
	}
	if len(run.Acceptance) > 0 {
		acc /= float64(len(run.Acceptance))
	}
	b.WriteString(row("acceptance", fmt.Sprintf("%.3f", acc)))

	if best, ok := run.Best(); ok {
		b.WriteString("\n" + row("best energy", fmt.Sprintf("%.6g", best.Energy)))
		for _, l := range best.Layers {
			b.WriteString("\n\n" + cyan.Render(fmt.Sprintf("%s (to %.3f m)", l.Name, l.ZLow)))
			for i, v := range l.Params.Tuple() {
				b.WriteString("\n" + row(column.ParamNames[i], fmt.Sprintf("%.5g", v)))
			}
		}
	}

	fmt.Println(box.Render(b.String()))

	pq := run.ParamQuantiles()
	levels := run.QuantileLevels()
	if len(pq) == 0 || len(levels) == 0 {
		return
	}
	fmt.Println(title.Render("\nposterior quantiles"))
	for l, lp := range run.Priors {
		for p, name := range column.ParamNames {
			if lp.Priors[p].Fixed() {
				continue
			}
			vals := make([]string, len(levels))
			for i, lv := range levels {
				vals[i] = fmt.Sprintf("q%g=%.5g", lv, pq[l][p][i])
			}
			fmt.Println(row(lp.Name+"."+name, strings.Join(vals, "  ")))
		}
	}
}
