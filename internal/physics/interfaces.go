package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/streamheat/internal/column"
)

// Interface locates one layer boundary on the grid.
type Interface struct {
	Depth float64
	// Row is the corrected row: the coincident cell, or the cell just
	// above the boundary when Coincident is false.
	Row        int
	Coincident bool
	// X is the fractional position of the boundary between the centres
	// of Row and Row+1.
	X float64
}

// ClassifyInterfaces places the boundaries between consecutive layers on
// the cell centres z. Boundaries whose correction would touch the first
// or last row, or overlap a neighbouring correction, are rejected as a
// configuration error since the grid is too coarse for the layering.
func ClassifyInterfaces(z []float64, dz float64, layers []column.Layer) ([]Interface, error) {
	n := len(z)
	out := make([]Interface, 0, len(layers)-1)
	lastRow := 0

	for l := 0; l < len(layers)-1; l++ {
		zi := layers[l].ZLow
		idx := int(math.Floor((zi - z[0]) / dz))
		if idx+1 < n && z[idx+1] <= zi {
			idx++
		}
		if idx >= 0 && z[idx] > zi {
			idx--
		}

		iface := Interface{Depth: zi}
		switch {
		case idx >= 0 && math.Abs(z[idx]-zi) < Epsilon:
			iface.Row, iface.Coincident = idx, true
		case idx+1 < n && math.Abs(z[idx+1]-zi) < Epsilon:
			iface.Row, iface.Coincident = idx+1, true
		case idx < 0 || idx >= n-1:
			return nil, &column.ConfigurationError{
				Field:  "layers",
				Reason: fmt.Sprintf("interface at %g lies outside the cell centres; use more cells", zi),
			}
		default:
			iface.Row = idx
			iface.X = (zi - z[idx]) / dz
		}

		first, last := iface.Row, iface.Row
		if !iface.Coincident {
			last = iface.Row + 1
		}
		if first < 1 || last > n-2 {
			return nil, &column.ConfigurationError{
				Field:  "layers",
				Reason: fmt.Sprintf("interface at %g is within a boundary cell; use more cells", zi),
			}
		}
		if l > 0 && first <= lastRow {
			return nil, &column.ConfigurationError{
				Field:  "layers",
				Reason: fmt.Sprintf("interfaces at %g and %g share a cell; use more cells", out[len(out)-1].Depth, zi),
			}
		}
		lastRow = last
		out = append(out, iface)
	}
	return out, nil
}

// Keq is the harmonic conductivity of a boundary at fraction x between
// a cell of conductivity k1 and one of conductivity k2.
func Keq(x, k1, k2 float64) float64 {
	return 1 / (x/k1 + (1-x)/k2)
}
