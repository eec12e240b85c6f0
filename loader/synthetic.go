package loader

import (
	"math"
	"math/rand"
	"sort"

	"golang.org/x/xerrors"
)

// SyntheticPowerlaw populates g with numVertices vertices whose out-degrees
// follow a powerlaw distribution with the provided exponent. Out-degrees are
// capped at min(numVertices-1, 100) and edge targets are sampled uniformly
// from the other vertices so the generated graphs never contain self-loops.
// Duplicate edges may occur. The same seed always yields the same graph.
func SyntheticPowerlaw(g Graph, numVertices int, exponent float64, seed int64) error {
	if numVertices < 2 {
		return xerrors.New("powerlaw graphs require at least 2 vertices")
	}
	if exponent <= 0 {
		return xerrors.New("powerlaw exponent must be greater than zero")
	}

	maxDegree := numVertices - 1
	if maxDegree > 100 {
		maxDegree = 100
	}

	// Cumulative distribution over the out-degrees 1..maxDegree where
	// P(degree) is proportional to degree^-exponent.
	cdf := make([]float64, maxDegree)
	var total float64
	for i := 0; i < maxDegree; i++ {
		total += math.Pow(float64(i+1), -exponent)
		cdf[i] = total
	}
	for i := range cdf {
		cdf[i] /= total
	}

	for id := int64(0); id < int64(numVertices); id++ {
		g.AddVertex(id)
	}

	r := rand.New(rand.NewSource(seed))
	for src := int64(0); src < int64(numVertices); src++ {
		outDegree := sort.SearchFloat64s(cdf, r.Float64()) + 1
		for i := 0; i < outDegree; i++ {
			target := int64(r.Intn(numVertices - 1))
			if target >= src {
				target++
			}
			if err := g.AddEdge(src, target); err != nil {
				return err
			}
		}
	}
	return nil
}
