package shortestpath

import (
	"context"
	"math"

	"github.com/panyawen/PowerGraph/gasgraph"
	"golang.org/x/xerrors"
)

// Calculator implements a hop count calculator from a single source vertex to
// all other vertices in a directed graph. Distances are tracked in the rank
// field of each vertex's state; unreached vertices report an infinite
// distance.
type Calculator struct {
	g    *gasgraph.Graph
	prog *program

	executorFactory gasgraph.ExecutorFactory
}

// NewCalculator returns a new hop count calculator instance.
func NewCalculator(numWorkers int) (*Calculator, error) {
	c := &Calculator{
		prog:            new(program),
		executorFactory: gasgraph.NewExecutor,
	}

	var err error
	if c.g, err = gasgraph.NewGraph(gasgraph.GraphConfig{
		Program:        c.prog,
		ComputeWorkers: numWorkers,
	}); err != nil {
		return nil, err
	}

	return c, nil
}

// Close cleans up any allocated graph resources.
func (c *Calculator) Close() error {
	return c.g.Close()
}

// SetExecutorFactory configures the calculator to use a custom executor
// factory when CalculateHopCounts is invoked.
func (c *Calculator) SetExecutorFactory(factory gasgraph.ExecutorFactory) {
	c.executorFactory = factory
}

// Graph returns the underlying gasgraph.Graph instance.
func (c *Calculator) Graph() *gasgraph.Graph {
	return c.g
}

// AddVertex inserts a new vertex with the specified ID into the graph.
func (c *Calculator) AddVertex(id int64) {
	c.g.AddVertex(id, gasgraph.State{Rank: math.Inf(1)})
}

// AddEdge creates a directed edge from srcID to dstID.
func (c *Calculator) AddEdge(srcID, dstID int64) error {
	return c.g.AddEdge(srcID, dstID)
}

// CalculateHopCounts finds the minimum number of hops from srcID to every
// other vertex in the graph.
func (c *Calculator) CalculateHopCounts(ctx context.Context, srcID int64) error {
	if _, exists := c.g.Vertices()[srcID]; !exists {
		return xerrors.Errorf("unknown vertex with ID %d", srcID)
	}

	c.prog.srcID = srcID
	c.g.TransformVertices(func(v *gasgraph.Vertex) {
		v.SetState(gasgraph.State{Rank: math.Inf(1)})
	})
	c.g.SignalAll()

	return c.executorFactory(c.g, gasgraph.ExecutorCallbacks{}).RunToCompletion(ctx)
}

// HopsTo returns the minimum number of hops from the source vertex of the
// last CalculateHopCounts call to the specified destination. The second
// return value reports whether the destination is reachable at all.
func (c *Calculator) HopsTo(dstID int64) (int, bool, error) {
	v, exists := c.g.Vertices()[dstID]
	if !exists {
		return 0, false, xerrors.Errorf("unknown vertex with ID %d", dstID)
	}

	dist := v.State().Rank
	if math.IsInf(dist, 1) {
		return 0, false, nil
	}
	return int(dist), true, nil
}

type program struct {
	srcID int64
}

// Gather announces the cost of reaching the target of e by extending the
// source's path with one extra hop.
func (p *program) Gather(_ *gasgraph.Vertex, e *gasgraph.Edge) float64 {
	return e.Source().State().Rank + 1
}

// Sum keeps the cheaper of two announced path costs.
func (p *program) Sum(a, b float64) float64 { return math.Min(a, b) }

// Apply adopts the cheapest announced path if it improves on the current
// distance and records the improvement. A zero total means that no
// in-neighbour has announced a path yet; announced costs are always at least
// one hop.
func (p *program) Apply(v *gasgraph.Vertex, total float64) {
	st := v.State()

	newDist := st.Rank
	if v.ID() == p.srcID {
		newDist = 0
	}
	if total > 0 && total < newDist {
		newDist = total
	}

	var improvement float64
	if newDist < st.Rank {
		improvement = st.Rank - newDist
	}
	st.LastChange = improvement
	st.Rank = newDist
	v.SetState(st)
}

// ScatterEdges propagates distance improvements along the out-edges.
func (p *program) ScatterEdges(v *gasgraph.Vertex) gasgraph.EdgeDirection {
	if v.State().LastChange > 0 {
		return gasgraph.OutEdges
	}
	return gasgraph.NoEdges
}

// Scatter activates the target of the out-edge e so it can re-evaluate its
// distance in the next round.
func (p *program) Scatter(_ *gasgraph.Vertex, e *gasgraph.Edge) []int64 {
	return []int64{e.Target().ID()}
}
