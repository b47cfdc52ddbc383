package mcmc

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// crossover holds the per-layer crossover probabilities and the jump
// statistics they adapt from.
type crossover struct {
	ncr int
	p   [][]float64 // [layer][bin]
	j   [][]float64 // summed normalised squared jumps
	n   [][]float64 // draws per bin
}

func newCrossover(layers, ncr int) *crossover {
	c := &crossover{
		ncr: ncr,
		p:   make([][]float64, layers),
		j:   make([][]float64, layers),
		n:   make([][]float64, layers),
	}
	for l := 0; l < layers; l++ {
		c.p[l] = make([]float64, ncr)
		c.j[l] = make([]float64, ncr)
		c.n[l] = make([]float64, ncr)
		for b := range c.p[l] {
			c.p[l][b] = 1 / float64(ncr)
		}
	}
	return c
}

// draw picks a bin for layer l.
func (c *crossover) draw(src rand.Source, l int) int {
	return int(distuv.NewCategorical(c.p[l], src).Rand())
}

// rate is the crossover probability of bin b.
func (c *crossover) rate(b int) float64 {
	return float64(b+1) / float64(c.ncr)
}

// jump is one chain's contribution to the statistics of one layer.
type jump struct {
	bin  int
	size float64
}

// record adds per-chain jumps, indexed [chain][layer]. Entries with a
// negative bin (layers without free parameters) are skipped.
func (c *crossover) record(jumps [][]jump) {
	for _, chain := range jumps {
		for l, jp := range chain {
			if jp.bin < 0 {
				continue
			}
			c.j[l][jp.bin] += jp.size
			c.n[l][jp.bin]++
		}
	}
}

// adapt sets p proportional to the mean jump of every bin drawn so far.
func (c *crossover) adapt() {
	for l := range c.p {
		for b := range c.p[l] {
			if c.n[l][b] > 0 {
				c.p[l][b] = c.j[l][b] / c.n[l][b]
			}
		}
		sum := floats.Sum(c.p[l])
		if sum <= 0 {
			for b := range c.p[l] {
				c.p[l][b] = 1 / float64(c.ncr)
			}
			continue
		}
		floats.Scale(1/sum, c.p[l])
	}
}

// Probabilities returns a copy of the crossover probabilities.
func (c *crossover) Probabilities() [][]float64 {
	out := make([][]float64, len(c.p))
	for l := range c.p {
		out[l] = append([]float64(nil), c.p[l]...)
	}
	return out
}
