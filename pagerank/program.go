package pagerank

import (
	"math"

	"github.com/panyawen/PowerGraph/gasgraph"
)

// Program implements the PageRank vertex program on top of the gather-apply-
// scatter model. Each vertex accumulates the rank mass that its in-neighbours
// distribute evenly across their outgoing edges, folds in the teleport mass
// and keeps activating its out-neighbours for as long as its own rank moves
// by more than the convergence threshold.
type Program struct {
	// ResetProb is the probability that a random surfer teleports to a
	// random vertex instead of following one of the outgoing edges of the
	// vertex they are currently visiting.
	ResetProb float64

	// ConvergenceThreshold is the minimum rank change that keeps a vertex
	// propagating activation to its neighbours.
	ConvergenceThreshold float64
}

// Gather returns the rank mass flowing to the target of the in-edge e. A
// source without outgoing edges distributes no mass and contributes zero.
func (p Program) Gather(_ *gasgraph.Vertex, e *gasgraph.Edge) float64 {
	src := e.Source()
	outDegree := src.OutDegree()
	if outDegree == 0 {
		return 0
	}
	return (1.0 - p.ResetProb) / float64(outDegree) * src.State().Rank
}

// Sum combines two gathered rank contributions.
func (p Program) Sum(a, b float64) float64 { return a + b }

// Apply folds the combined in-edge contributions and the teleport mass into
// the vertex's rank and records the magnitude of the change.
func (p Program) Apply(v *gasgraph.Vertex, total float64) {
	st := v.State()
	newRank := total + p.ResetProb
	st.LastChange = math.Abs(newRank - st.Rank)
	st.Rank = newRank
	v.SetState(st)
}

// ScatterEdges selects the out-edges for scattering while the vertex's rank
// still moves by strictly more than the convergence threshold. A change equal
// to the threshold stops the propagation.
func (p Program) ScatterEdges(v *gasgraph.Vertex) gasgraph.EdgeDirection {
	if v.State().LastChange > p.ConvergenceThreshold {
		return gasgraph.OutEdges
	}
	return gasgraph.NoEdges
}

// Scatter activates the target of the out-edge e for the next round.
func (p Program) Scatter(_ *gasgraph.Vertex, e *gasgraph.Edge) []int64 {
	return []int64{e.Target().ID()}
}
