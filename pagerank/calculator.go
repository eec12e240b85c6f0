package pagerank

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/panyawen/PowerGraph/gasgraph"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Calculator executes the iterative version of the PageRank algorithm on a
// directed graph until the rank change of every vertex drops to the
// configured convergence threshold or below.
type Calculator struct {
	g   *gasgraph.Graph
	cfg Config

	executorFactory gasgraph.ExecutorFactory
}

// NewCalculator returns a new Calculator instance using the provided config
// options.
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("PageRank calculator config validation failed: %w", err)
	}

	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{
		Program: Program{
			ResetProb:            cfg.ResetProb,
			ConvergenceThreshold: cfg.ConvergenceThreshold,
		},
		ComputeWorkers: cfg.ComputeWorkers,
		Clock:          cfg.Clock,
	})
	if err != nil {
		return nil, err
	}

	return &Calculator{
		cfg:             cfg,
		g:               g,
		executorFactory: gasgraph.NewExecutor,
	}, nil
}

// Close releases any resources allocated by this PageRank calculator
// instance.
func (c *Calculator) Close() error {
	return c.g.Close()
}

// SetExecutorFactory configures the calculator to use a custom executor
// factory when the Executor method is invoked.
func (c *Calculator) SetExecutorFactory(factory gasgraph.ExecutorFactory) {
	c.executorFactory = factory
}

// Graph returns the underlying gasgraph.Graph instance.
func (c *Calculator) Graph() *gasgraph.Graph {
	return c.g
}

// AddVertex inserts a new vertex with the specified ID into the graph.
func (c *Calculator) AddVertex(id int64) {
	c.g.AddVertex(id, gasgraph.State{})
}

// AddEdge inserts a directed edge from src to dst. If both endpoints refer
// to the same vertex the edge is a self-loop and is accepted.
func (c *Calculator) AddEdge(src, dst int64) error {
	return c.g.AddEdge(src, dst)
}

// Executor creates and returns a gasgraph.Executor for running the PageRank
// algorithm once the graph layout has been set up. Every vertex starts the
// run with a rank of 1.0 and an active round-0 signal.
func (c *Calculator) Executor() *gasgraph.Executor {
	c.g.TransformVertices(func(v *gasgraph.Vertex) {
		v.SetState(gasgraph.State{Rank: 1.0})
	})
	c.g.SignalAll()

	cb := gasgraph.ExecutorCallbacks{
		PostRound: func(_ context.Context, g *gasgraph.Graph, processed int) error {
			c.cfg.Logger.WithFields(logrus.Fields{
				"round":      g.Round(),
				"processed":  processed,
				"rank_delta": g.RankDelta(),
			}).Debug("completed PageRank round")
			return nil
		},
	}
	if c.cfg.MaxRounds > 0 {
		cb.PostRoundKeepRunning = func(_ context.Context, g *gasgraph.Graph, _ int) (bool, error) {
			return g.Round()+1 < c.cfg.MaxRounds, nil
		}
	}

	return c.executorFactory(c.g, cb)
}

// Scores invokes the provided function for each vertex in the graph, passing
// in the vertex ID and its PageRank score. If the function returns an error,
// the iteration stops and the error is returned to the caller.
func (c *Calculator) Scores(visitFn func(id int64, score float64) error) error {
	for id, v := range c.g.Vertices() {
		if err := visitFn(id, v.State().Rank); err != nil {
			return err
		}
	}
	return nil
}

// SaveScores writes one tab-separated "id rank" line per vertex to w,
// ordered by vertex ID.
func (c *Calculator) SaveScores(w io.Writer) error {
	vertices := c.g.Vertices()
	ids := make([]int64, 0, len(vertices))
	for id := range vertices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if _, err := fmt.Fprintf(w, "%d\t%g\n", id, vertices[id].State().Rank); err != nil {
			return xerrors.Errorf("saving score for vertex %d: %w", id, err)
		}
	}
	return nil
}

// TotalRank returns the sum of the rank values across all graph vertices.
func (c *Calculator) TotalRank() float64 {
	return c.g.MapReduceVertices(
		func(v *gasgraph.Vertex) float64 { return v.State().Rank },
		func(a, b float64) float64 { return a + b },
	)
}
