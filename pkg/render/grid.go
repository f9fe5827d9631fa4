package render

import (
	"math"

	"github.com/dd0wney/cluso-sarnet/pkg/network"
)

// coherenceGrid adapts a model to the plotter.GridXYZ interface: a symmetric
// dates x dates matrix of per-pair coherence, NaN where no pair exists.
// NaN cells are skipped by the heat map.
type coherenceGrid struct {
	n int
	z []float64
}

func newCoherenceGrid(m *network.Model) *coherenceGrid {
	index := make(map[string]int, len(m.Dates))
	for i, d := range m.Dates {
		index[d] = i
	}

	n := len(m.Dates)
	g := &coherenceGrid{n: n, z: make([]float64, n*n)}
	for i := range g.z {
		g.z[i] = math.NaN()
	}
	for k, p := range m.Pairs {
		master, secondary, err := network.SplitPair(p)
		if err != nil {
			continue
		}
		i, iok := index[master]
		j, jok := index[secondary]
		if !iok || !jok {
			continue
		}
		v := m.Coherence.At(k)
		g.z[i*n+j] = v
		g.z[j*n+i] = v
	}
	return g
}

func (g *coherenceGrid) Dims() (c, r int) { return g.n, g.n }
func (g *coherenceGrid) X(c int) float64  { return float64(c) }
func (g *coherenceGrid) Y(r int) float64  { return float64(r) }
func (g *coherenceGrid) Z(c, r int) float64 {
	return g.z[r*g.n+c]
}
